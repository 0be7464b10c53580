// Package sink implements the notifier's output drivers: stdout, file,
// script and popup, each a simple consumer over a notifier's decoded
// message iterator (spec §4.5).
package sink

import (
	"github.com/heyu-project/heyud/internal/metrics"
	"github.com/heyu-project/heyud/internal/protocol"
)

// Source is the iterator contract a driver consumes. *notifier.Notifier
// satisfies it; drivers depend only on this interface so they can be
// tested against a fake.
type Source interface {
	Next() (*protocol.Message, bool)
}

// Driver runs a sink to completion: it drains Source until the stream
// ends (Stop or Shutdown closed it) and returns.
type Driver interface {
	Run(src Source) error
}

// MetricsSetter is implemented by every driver that records delivery
// metrics. A caller holding a Collector only after construction (cmd/
// heyunotifier builds its driver from flags before it has loaded
// configuration) wires it in via this interface rather than threading a
// Collector through every driver constructor.
type MetricsSetter interface {
	SetMetrics(c metrics.Collector)
}

// recordDelivered increments the delivered-notification counter when a
// driver carries a Collector. Drivers built without one (most tests)
// simply skip metrics rather than requiring a Noop stand-in everywhere.
func recordDelivered(c metrics.Collector) {
	if c != nil {
		c.NotificationDelivered()
	}
}

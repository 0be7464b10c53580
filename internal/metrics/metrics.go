// Package metrics defines the Collector interface for recording hub and
// notifier metrics and the Server interface for exposing them over
// HTTP.
package metrics

import "context"

// Collector records metrics for both the hub and the notifier role; a
// role only exercises the methods relevant to it.
type Collector interface {
	// Connection metrics (both roles).
	ConnectionOpened()
	ConnectionClosed()
	TLSConnectionEstablished()

	// Hub-side metrics.
	NotifySubmitted()
	NotifyFanoutFailed()
	SubscriberAdded()
	SubscriberRemoved()
	SubscriberCount(n int)

	// Notifier-side metrics.
	ReconnectAttempted()
	BackoffSleep(seconds float64)
	NotificationQueued()
	NotificationDelivered()
}

// Server exposes a Collector's metrics over HTTP. Start blocks until
// the context is cancelled or an error occurs; Shutdown stops it
// gracefully.
type Server interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

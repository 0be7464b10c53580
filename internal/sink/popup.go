package sink

import "github.com/heyu-project/heyud/internal/metrics"

// PopupDriver forwards each notification to the host desktop-notification
// service, collapsing updates that share an id with a previously
// displayed popup. The platform binding is an external collaborator
// outside this repository's scope; Backend carries whatever contract a
// concrete binding implements.
type PopupDriver struct {
	Backend PopupBackend
	Metrics metrics.Collector
}

// PopupBackend is the contract a concrete desktop-notification binding
// must satisfy. Show is called once per notification; a call sharing id
// with a previous call must update that popup rather than open a new
// one.
type PopupBackend interface {
	Show(id, application, summary, body, urgency string) error
}

// SetMetrics implements MetricsSetter.
func (d *PopupDriver) SetMetrics(c metrics.Collector) { d.Metrics = c }

func (d *PopupDriver) Run(src Source) error {
	for {
		msg, ok := src.Next()
		if !ok {
			return nil
		}
		args, ok := msg.Notify()
		if !ok {
			continue
		}
		fields := notifyFields(args)
		if err := d.Backend.Show(fields["id"], fields["application"], fields["summary"], fields["body"], fields["urgency"]); err != nil {
			return err
		}
		recordDelivered(d.Metrics)
	}
}

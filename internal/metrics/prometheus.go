package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector using Prometheus metrics.
type PrometheusCollector struct {
	connectionsTotal   prometheus.Counter
	connectionsActive  prometheus.Gauge
	tlsConnectionTotal prometheus.Counter

	notifySubmittedTotal   prometheus.Counter
	notifyFanoutFailedTotal prometheus.Counter
	subscribersActive      prometheus.Gauge
	subscriberAddedTotal   prometheus.Counter
	subscriberRemovedTotal prometheus.Counter

	reconnectAttemptsTotal  prometheus.Counter
	backoffSleepSeconds     prometheus.Histogram
	notificationsQueuedTotal    prometheus.Counter
	notificationsDeliveredTotal prometheus.Counter
}

// NewPrometheusCollector creates a new PrometheusCollector with all
// metrics registered against reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_connections_total",
			Help: "Total number of connections opened.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heyu_connections_active",
			Help: "Number of currently active connections.",
		}),
		tlsConnectionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_tls_connections_total",
			Help: "Total number of TLS connections established.",
		}),
		notifySubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_hub_notify_submitted_total",
			Help: "Total number of notify messages accepted from submitters.",
		}),
		notifyFanoutFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_hub_notify_fanout_failed_total",
			Help: "Total number of per-subscriber fan-out write failures.",
		}),
		subscribersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heyu_hub_subscribers_active",
			Help: "Number of currently subscribed notifiers.",
		}),
		subscriberAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_hub_subscriber_added_total",
			Help: "Total number of connections that completed a subscribe handshake.",
		}),
		subscriberRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_hub_subscriber_removed_total",
			Help: "Total number of subscriber entries removed.",
		}),
		reconnectAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_notifier_reconnect_attempts_total",
			Help: "Total number of connection attempts made by the notifier.",
		}),
		backoffSleepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "heyu_notifier_backoff_sleep_seconds",
			Help:    "Sleep duration computed between reconnect attempts.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 300},
		}),
		notificationsQueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_notifier_notifications_queued_total",
			Help: "Total number of notifications enqueued to the sink driver.",
		}),
		notificationsDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heyu_notifier_notifications_delivered_total",
			Help: "Total number of notifications dequeued by the sink driver.",
		}),
	}

	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.tlsConnectionTotal,
		c.notifySubmittedTotal,
		c.notifyFanoutFailedTotal,
		c.subscribersActive,
		c.subscriberAddedTotal,
		c.subscriberRemovedTotal,
		c.reconnectAttemptsTotal,
		c.backoffSleepSeconds,
		c.notificationsQueuedTotal,
		c.notificationsDeliveredTotal,
	)

	return c
}

func (c *PrometheusCollector) ConnectionOpened() {
	c.connectionsTotal.Inc()
	c.connectionsActive.Inc()
}

func (c *PrometheusCollector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

func (c *PrometheusCollector) TLSConnectionEstablished() {
	c.tlsConnectionTotal.Inc()
}

func (c *PrometheusCollector) NotifySubmitted() {
	c.notifySubmittedTotal.Inc()
}

func (c *PrometheusCollector) NotifyFanoutFailed() {
	c.notifyFanoutFailedTotal.Inc()
}

func (c *PrometheusCollector) SubscriberAdded() {
	c.subscriberAddedTotal.Inc()
}

func (c *PrometheusCollector) SubscriberRemoved() {
	c.subscriberRemovedTotal.Inc()
}

func (c *PrometheusCollector) SubscriberCount(n int) {
	c.subscribersActive.Set(float64(n))
}

func (c *PrometheusCollector) ReconnectAttempted() {
	c.reconnectAttemptsTotal.Inc()
}

func (c *PrometheusCollector) BackoffSleep(seconds float64) {
	c.backoffSleepSeconds.Observe(seconds)
}

func (c *PrometheusCollector) NotificationQueued() {
	c.notificationsQueuedTotal.Inc()
}

func (c *PrometheusCollector) NotificationDelivered() {
	c.notificationsDeliveredTotal.Inc()
}

package metrics

// NoopCollector is a no-op implementation of the Collector interface.
// All methods are empty stubs that do nothing.
type NoopCollector struct{}

func (n *NoopCollector) ConnectionOpened()          {}
func (n *NoopCollector) ConnectionClosed()           {}
func (n *NoopCollector) TLSConnectionEstablished()   {}
func (n *NoopCollector) NotifySubmitted()            {}
func (n *NoopCollector) NotifyFanoutFailed()         {}
func (n *NoopCollector) SubscriberAdded()            {}
func (n *NoopCollector) SubscriberRemoved()          {}
func (n *NoopCollector) SubscriberCount(n2 int)      {}
func (n *NoopCollector) ReconnectAttempted()         {}
func (n *NoopCollector) BackoffSleep(seconds float64) {}
func (n *NoopCollector) NotificationQueued()          {}
func (n *NoopCollector) NotificationDelivered()       {}

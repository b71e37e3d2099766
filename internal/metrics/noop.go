package metrics

// NoopCollector is a no-op implementation of the Collector interface.
// All methods are empty stubs that do nothing.
type NoopCollector struct{}

func (n *NoopCollector) ConnectionOpened(protocol string)         {}
func (n *NoopCollector) ConnectionClosed(protocol string)         {}
func (n *NoopCollector) TLSConnectionEstablished(protocol string) {}

func (n *NoopCollector) AuthAttempt(protocol, mechanism string, success bool) {}

func (n *NoopCollector) CommandSent(protocol, command string)                       {}
func (n *NoopCollector) CommandLatency(protocol, command string, seconds float64) {}

func (n *NoopCollector) BytesSent(protocol string, nbytes int64)     {}
func (n *NoopCollector) BytesReceived(protocol string, nbytes int64) {}

func (n *NoopCollector) QueueSendResult(success bool) {}

// Package metrics provides interfaces and implementations for collecting
// mailcore client metrics. This package defines the Collector interface for
// recording metrics and the Server interface for exposing them.
package metrics

import "context"

// Collector defines the interface for recording mail-client metrics.
type Collector interface {
	// Connection metrics
	ConnectionOpened(protocol string)
	ConnectionClosed(protocol string)
	TLSConnectionEstablished(protocol string)

	// Authentication metrics
	AuthAttempt(protocol, mechanism string, success bool)

	// Command metrics
	CommandSent(protocol, command string)
	CommandLatency(protocol, command string, seconds float64)

	// Transfer metrics
	BytesSent(protocol string, n int64)
	BytesReceived(protocol string, n int64)

	// Queue dispatcher metrics
	QueueSendResult(success bool)
}

// Server defines the interface for a metrics HTTP server.
type Server interface {
	// Start begins serving metrics. It blocks until the context is canceled
	// or an error occurs.
	Start(ctx context.Context) error

	// Shutdown gracefully stops the metrics server.
	Shutdown(ctx context.Context) error
}

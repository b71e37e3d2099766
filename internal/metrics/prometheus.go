package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements the Collector interface using Prometheus metrics.
type PrometheusCollector struct {
	connectionsTotal   *prometheus.CounterVec
	connectionsActive  *prometheus.GaugeVec
	tlsConnectionTotal *prometheus.CounterVec

	authAttemptsTotal *prometheus.CounterVec

	commandsTotal   *prometheus.CounterVec
	commandLatency  *prometheus.HistogramVec

	bytesSentTotal     *prometheus.CounterVec
	bytesReceivedTotal *prometheus.CounterVec

	queueSendTotal *prometheus.CounterVec
}

// NewPrometheusCollector creates a new PrometheusCollector with all metrics registered.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailcore_connections_total",
			Help: "Total number of connections opened, by protocol.",
		}, []string{"protocol"}),
		connectionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mailcore_connections_active",
			Help: "Number of currently active connections, by protocol.",
		}, []string{"protocol"}),
		tlsConnectionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailcore_tls_connections_total",
			Help: "Total number of TLS connections established, by protocol.",
		}, []string{"protocol"}),

		authAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailcore_auth_attempts_total",
			Help: "Total number of authentication attempts.",
		}, []string{"protocol", "mechanism", "result"}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailcore_commands_sent_total",
			Help: "Total number of protocol commands sent.",
		}, []string{"protocol", "command"}),
		commandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mailcore_command_latency_seconds",
			Help:    "Round-trip latency of protocol commands.",
			Buckets: prometheus.DefBuckets,
		}, []string{"protocol", "command"}),

		bytesSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailcore_bytes_sent_total",
			Help: "Total bytes written to the wire, by protocol.",
		}, []string{"protocol"}),
		bytesReceivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailcore_bytes_received_total",
			Help: "Total bytes read from the wire, by protocol.",
		}, []string{"protocol"}),

		queueSendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailcore_queue_send_total",
			Help: "Total queued-message dispatch outcomes.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.tlsConnectionTotal,
		c.authAttemptsTotal,
		c.commandsTotal,
		c.commandLatency,
		c.bytesSentTotal,
		c.bytesReceivedTotal,
		c.queueSendTotal,
	)

	return c
}

func (c *PrometheusCollector) ConnectionOpened(protocol string) {
	c.connectionsTotal.WithLabelValues(protocol).Inc()
	c.connectionsActive.WithLabelValues(protocol).Inc()
}

func (c *PrometheusCollector) ConnectionClosed(protocol string) {
	c.connectionsActive.WithLabelValues(protocol).Dec()
}

func (c *PrometheusCollector) TLSConnectionEstablished(protocol string) {
	c.tlsConnectionTotal.WithLabelValues(protocol).Inc()
}

func (c *PrometheusCollector) AuthAttempt(protocol, mechanism string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.authAttemptsTotal.WithLabelValues(protocol, mechanism, result).Inc()
}

func (c *PrometheusCollector) CommandSent(protocol, command string) {
	c.commandsTotal.WithLabelValues(protocol, command).Inc()
}

func (c *PrometheusCollector) CommandLatency(protocol, command string, seconds float64) {
	c.commandLatency.WithLabelValues(protocol, command).Observe(seconds)
}

func (c *PrometheusCollector) BytesSent(protocol string, n int64) {
	c.bytesSentTotal.WithLabelValues(protocol).Add(float64(n))
}

func (c *PrometheusCollector) BytesReceived(protocol string, n int64) {
	c.bytesReceivedTotal.WithLabelValues(protocol).Add(float64(n))
}

func (c *PrometheusCollector) QueueSendResult(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.queueSendTotal.WithLabelValues(result).Inc()
}

// PrometheusServer exposes the registered metrics over HTTP.
type PrometheusServer struct {
	addr string
	path string
	srv  *http.Server
}

// NewPrometheusServer creates a PrometheusServer listening on addr, serving
// the default registry at path.
func NewPrometheusServer(addr, path string) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return &PrometheusServer{
		addr: addr,
		path: path,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start begins serving metrics. It blocks until the context is canceled.
func (s *PrometheusServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = s.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the metrics server.
func (s *PrometheusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

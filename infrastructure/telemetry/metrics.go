package telemetry

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the Prometheus exposition surface named in SPEC_FULL.md's
// §4.J expansion ("counters/gauges for connections accepted, bytes
// relayed per direction, replay rejections, auth failures, and active
// sessions"). Grounded on kenchrcum-s3-encryption-gateway's
// internal/metrics package, the only user of prometheus/client_golang
// anywhere in the example pack, including its pairing with gorilla/mux
// for the handler route.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	BytesRelayedRX      prometheus.Counter
	BytesRelayedTX      prometheus.Counter
	ReplayRejections    prometheus.Counter
	AuthFailures        prometheus.Counter
	ActiveSessions      prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics registers every collector against a fresh registry (not the
// global default one, so multiple test instances never collide).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shadowrelay",
			Name:      "connections_accepted_total",
			Help:      "Total TCP connections accepted by the relay.",
		}),
		BytesRelayedRX: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shadowrelay",
			Name:      "bytes_relayed_rx_total",
			Help:      "Total bytes relayed from client to target.",
		}),
		BytesRelayedTX: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shadowrelay",
			Name:      "bytes_relayed_tx_total",
			Help:      "Total bytes relayed from target to client.",
		}),
		ReplayRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shadowrelay",
			Name:      "replay_rejections_total",
			Help:      "Total connections closed due to a detected IV replay.",
		}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shadowrelay",
			Name:      "auth_failures_total",
			Help:      "Total connections closed due to header or chunk MAC failure.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "shadowrelay",
			Name:      "active_sessions",
			Help:      "Number of accepted connections currently being handled, in any stage.",
		}),
	}
}

// Server returns an *http.Server serving /metrics on addr. The caller is
// responsible for running ListenAndServe and for shutting it down via
// Shutdown on the returned Server (or by canceling a context passed to a
// goroutine wrapping it), matching the teacher's pattern of handing back
// a plain *http.Server rather than owning the listen loop itself.
func (m *Metrics) Server(addr string) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: r}
}

// Run starts the metrics HTTP server and blocks until ctx is canceled,
// then shuts it down gracefully.
func (m *Metrics) Run(ctx context.Context, addr string) error {
	srv := m.Server(addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

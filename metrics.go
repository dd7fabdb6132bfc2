package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics wraps the Prometheus collectors exposed by the server. All
// methods are nil-safe so callers (tests, or a server run with metrics
// disabled) can pass a nil *Metrics without special-casing every call site.
type Metrics struct {
	registry     *prometheus.Registry
	opsTotal     *prometheus.CounterVec
	getHits      prometheus.Counter
	getMisses    prometheus.Counter
	storeSize    prometheus.Gauge
	evictedTotal prometheus.Counter
	connections  prometheus.Gauge
}

// NewMetrics builds a fresh Metrics instance registered against its own
// registry, so tests can construct independent instances without colliding
// on the default global registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		opsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "gofastcache",
			Name:      "ops_total",
			Help:      "Total number of executed commands by kind.",
		}, []string{"command"}),
		getHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "gofastcache",
			Name:      "get_hits_total",
			Help:      "Total number of GET commands served from the store.",
		}),
		getMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "gofastcache",
			Name:      "get_misses_total",
			Help:      "Total number of GET commands for an absent or expired key.",
		}),
		storeSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "gofastcache",
			Name:      "store_size",
			Help:      "Approximate number of entries currently in the store.",
		}),
		evictedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "gofastcache",
			Name:      "sweeper_evicted_total",
			Help:      "Total number of entries removed by the background sweeper.",
		}),
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "gofastcache",
			Name:      "connections",
			Help:      "Number of currently open client connections.",
		}),
	}
	return m
}

// RecordOp increments the per-command-kind counter.
func (m *Metrics) RecordOp(kind CommandKind) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(kind.String()).Inc()
}

// RecordGet records a GET as either a hit or a miss, in addition to the
// generic op counter.
func (m *Metrics) RecordGet(hit bool) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(CmdGet.String()).Inc()
	if hit {
		m.getHits.Inc()
	} else {
		m.getMisses.Inc()
	}
}

func (m *Metrics) SetStoreSize(n int) {
	if m == nil {
		return
	}
	m.storeSize.Set(float64(n))
}

func (m *Metrics) RecordEvicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictedTotal.Add(float64(n))
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Serve starts an HTTP server exposing the /metrics endpoint, blocking
// until ctx is cancelled. A blank addr disables metrics serving entirely.
func (m *Metrics) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	if m == nil || addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

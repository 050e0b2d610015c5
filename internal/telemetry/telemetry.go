// Package telemetry builds the shared logger and metrics registry used by
// every cmd/* binary in this module, so the ring, cache node, lock, ephemeral
// node, and ticket services all log and report metrics the same way.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a production zap logger with a human-friendly time
// encoding. Call Sync before process exit to flush buffered entries.
func NewLogger(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than crash a cache/lock node
		// over a logging misconfiguration.
		logger = zap.NewNop()
	}
	return logger.Sugar().With("service", service)
}

// Metrics is the set of Prometheus collectors shared across components.
// Each cmd/* binary constructs one Metrics and wires its counters into the
// component(s) it owns.
type Metrics struct {
	Registry *prometheus.Registry

	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec
	CacheSize      *prometheus.GaugeVec

	RingRouteFailures prometheus.Counter
	RingBackendErrors prometheus.Counter

	LockAcquires prometheus.Counter
	LockSteals   prometheus.Counter
	LockDenied   prometheus.Counter
	LockExpiries prometheus.Counter

	EphemeralHandoffs  prometheus.Counter
	EphemeralParentGCs prometheus.Counter

	SweeperTicks  prometheus.Counter
	SweeperErrors prometheus.Counter
}

// NewMetrics registers and returns the shared collector set. namespace is
// the Prometheus metric namespace (e.g. "ring", "lock", "ephemeral").
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total", Help: "Cache node get() hits.",
		}, []string{"instance"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_misses_total", Help: "Cache node get() misses.",
		}, []string{"instance"}),
		CacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_evictions_total", Help: "LRU evictions performed.",
		}, []string{"instance"}),
		CacheSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "cache_size", Help: "Current number of entries held.",
		}, []string{"instance"}),
		RingRouteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ring_route_failures_total", Help: "route() calls against an empty ring.",
		}),
		RingBackendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ring_backend_errors_total", Help: "Remote backend put/get failures.",
		}),
		LockAcquires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lock_acquires_total", Help: "Successful acquires, including renewals.",
		}),
		LockSteals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lock_steals_total", Help: "Acquires that took over an expired lock.",
		}),
		LockDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lock_denied_total", Help: "Acquires rejected with LockAlreadyHeld.",
		}),
		LockExpiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lock_expiries_total", Help: "Locks garbage collected by the sweeper.",
		}),
		EphemeralHandoffs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ephemeral_handoffs_total", Help: "Ownership hand-offs performed by the sweeper.",
		}),
		EphemeralParentGCs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ephemeral_parent_gcs_total", Help: "Childless parent nodes garbage collected.",
		}),
		SweeperTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sweeper_ticks_total", Help: "Per-target sweeps that completed without error.",
		}),
		SweeperErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sweeper_errors_total", Help: "Per-target sweeps that returned an error.",
		}),
	}
	reg.MustRegister(
		m.CacheHits, m.CacheMisses, m.CacheEvictions, m.CacheSize,
		m.RingRouteFailures, m.RingBackendErrors,
		m.LockAcquires, m.LockSteals, m.LockDenied, m.LockExpiries,
		m.EphemeralHandoffs, m.EphemeralParentGCs,
		m.SweeperTicks, m.SweeperErrors,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Package metrics exposes the orchestrator's per-slot progress as
// Prometheus gauges and histograms, grounded on the pack's Prometheus
// client usage — here on the exposition side (client_golang's registry and
// promhttp handler) rather than the query side.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the run's gauges/histograms. The orchestrator updates
// SlotsRunning, SlotsCompleted and SlotsFailed; BlockDuration, AcceptAvg and
// IterationLatency are registered but nothing in the run updates them.
type Registry struct {
	registry *prometheus.Registry

	SlotsRunning     prometheus.Gauge
	SlotsCompleted   prometheus.Counter
	SlotsFailed      prometheus.Counter
	BlockDuration    prometheus.Histogram
	AcceptAvg        *prometheus.GaugeVec
	IterationLatency prometheus.Histogram
}

// NewRegistry builds a fresh, isolated metrics registry (no global
// DefaultRegisterer use, so tests and multiple runs in one process don't
// collide).
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		SlotsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inference_slots_running",
			Help: "Number of MCMC slots currently executing.",
		}),
		SlotsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inference_slots_completed_total",
			Help: "Number of MCMC slots that completed all blocks.",
		}),
		SlotsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inference_slots_failed_total",
			Help: "Number of MCMC slots that exited with a fatal error.",
		}),
		BlockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inference_block_duration_seconds",
			Help:    "Wall-clock duration of one block across all iterations.",
			Buckets: prometheus.DefBuckets,
		}),
		AcceptAvg: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inference_slot_accept_avg",
			Help: "Running mean of the global accept indicator for a slot.",
		}, []string{"slot"}),
		IterationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inference_iteration_latency_seconds",
			Help:    "Latency of a single propose/simulate/evaluate/persist iteration.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(r.SlotsRunning, r.SlotsCompleted, r.SlotsFailed, r.BlockDuration, r.AcceptAvg, r.IterationLatency)
	return r
}

// Handler returns the http.Handler promhttp should serve /metrics from.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus collectors for curve construction.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "termfit"

// Metrics groups the collectors updated by curve construction.
type Metrics struct {
	// Recalculations counts completed curve recomputations by kind (bootstrap, fitted).
	Recalculations *prometheus.CounterVec
	// RecalcDuration observes recomputation wall time by kind.
	RecalcDuration *prometheus.HistogramVec
	// BootstrapFailures counts bootstraps aborted by a pillar that could not be solved.
	BootstrapFailures prometheus.Counter
	// FitIterations observes optimizer iterations per fit by fitting method.
	FitIterations *prometheus.HistogramVec
	// NonConvergedFits counts fits that stopped above the requested accuracy.
	NonConvergedFits *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "curve_recalculations_total",
			Help:      "Completed curve recomputations",
		}, []string{"kind"}),
		RecalcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "curve_recalculation_duration_seconds",
			Help:      "Curve recomputation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),
		BootstrapFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_failures_total",
			Help:      "Bootstraps aborted on an unsolvable pillar",
		}),
		FitIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_iterations",
			Help:      "Optimizer iterations per curve fit",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"method"}),
		NonConvergedFits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fit_nonconverged_total",
			Help:      "Fits that stopped above the requested accuracy",
		}, []string{"method"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.Recalculations,
		m.RecalcDuration,
		m.BootstrapFailures,
		m.FitIterations,
		m.NonConvergedFits,
	)
	return m
}

// Registry returns the registry holding m's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves m's collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Default is the instance curves report to.
var Default = New()

// Package observability exports decorator measurements as Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aiagents"

// PrometheusHooks implements decorators.Hooks on top of Prometheus collectors.
type PrometheusHooks struct {
	durations       *prometheus.HistogramVec
	attemptFailures *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewPrometheusHooks registers the decorator collectors with reg.
// Registering twice with the same registerer panics.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	factory := promauto.With(reg)
	return &PrometheusHooks{
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall-clock duration of timed service operations.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"operation", "outcome"}),
		attemptFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempt_failures_total",
			Help:      "Failed attempts observed by the retry decorator.",
		}, []string{"operation"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache decorator lookups by result.",
		}, []string{"operation", "result"}),
	}
}

// ObserveDuration records the duration of one timed call.
func (h *PrometheusHooks) ObserveDuration(operation string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	h.durations.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// ObserveRetry records one failed attempt.
func (h *PrometheusHooks) ObserveRetry(operation string, _ int, _ error) {
	h.attemptFailures.WithLabelValues(operation).Inc()
}

// ObserveCacheLookup records one cache hit or miss.
func (h *PrometheusHooks) ObserveCacheLookup(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	h.cacheLookups.WithLabelValues(operation, result).Inc()
}

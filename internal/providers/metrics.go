package providers

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteFetchTotal    *prometheus.CounterVec
	remoteRetryTotal    *prometheus.CounterVec
	remoteFetchDuration prometheus.Histogram

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// RemoteMetrics records remote fetch outcomes. All recorders are no-ops
// until InitMetrics has run, so library callers pay nothing unless the host
// process opts in to Prometheus.
type RemoteMetrics struct{}

// NewRemoteMetrics creates a new RemoteMetrics instance. Metrics are lazily
// registered by InitMetrics, not here.
func NewRemoteMetrics() *RemoteMetrics {
	return &RemoteMetrics{}
}

// InitMetrics registers the remote fetch metrics with the default registry.
// Call once at startup if Prometheus metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		remoteFetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noctivault_remote_fetch_total",
				Help: "Total number of remote secret fetches by outcome",
			},
			[]string{"outcome"},
		)

		remoteRetryTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noctivault_remote_retry_total",
				Help: "Total number of remote fetch retries by failure class",
			},
			[]string{"reason"},
		)

		remoteFetchDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "noctivault_remote_fetch_duration_seconds",
				Help:    "Duration of remote secret fetches in seconds, retries included",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
		)

		metricsRegistered = true
	})
}

// RecordFetch records one finished fetch and its duration.
func (m *RemoteMetrics) RecordFetch(outcome string, durationSeconds float64) {
	if !metricsRegistered {
		return
	}
	if remoteFetchTotal != nil {
		remoteFetchTotal.WithLabelValues(outcome).Inc()
	}
	if remoteFetchDuration != nil {
		remoteFetchDuration.Observe(durationSeconds)
	}
}

// RecordRetry records one retry decision.
func (m *RemoteMetrics) RecordRetry(reason string) {
	if !metricsRegistered || remoteRetryTotal == nil {
		return
	}
	remoteRetryTotal.WithLabelValues(reason).Inc()
}

// IsMetricsRegistered returns whether metrics have been initialized.
func IsMetricsRegistered() bool {
	return metricsRegistered
}

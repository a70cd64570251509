package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meridianhealth/estimator/internal/resilience"
)

// Metrics holds the process-wide Prometheus collectors: one CounterVec or
// GaugeVec per concern, under a single namespace for the whole process.
type Metrics struct {
	UpstreamCalls   *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec
	ChainLatency    prometheus.Histogram
	EstimatesTotal  *prometheus.CounterVec
}

// NewMetrics registers the engine's collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		UpstreamCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Total calls to an upstream endpoint, by outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		UpstreamLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_call_duration_seconds",
				Help:      "Upstream call latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		BreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half_open)",
			},
			[]string{"endpoint"},
		),
		ChainLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_chain_duration_seconds",
				Help:      "Per-benefit handler chain run latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		EstimatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "estimates_total",
				Help:      "Total estimate requests processed, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// WatchBreaker installs an OnStateChange callback on b that keeps the
// BreakerState gauge for endpoint in sync with the breaker's actual state.
func (m *Metrics) WatchBreaker(endpoint string, b *resilience.Breaker) {
	gauge := m.BreakerState.WithLabelValues(endpoint)
	gauge.Set(float64(b.State()))
	b.OnStateChange(func(_, to resilience.BreakerState) {
		gauge.Set(float64(to))
	})
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Query correction Prometheus metrics.
var (
	CorrectionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartsearch",
			Name:      "correction_requests_total",
			Help:      "Total number of query correction requests",
		},
		[]string{"provider", "model", "status"},
	)

	CorrectionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smartsearch",
			Name:      "correction_request_duration_seconds",
			Help:      "Query correction request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	CorrectionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartsearch",
			Name:      "correction_tokens_total",
			Help:      "Total correction tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	CorrectionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartsearch",
			Name:      "correction_cache_total",
			Help:      "Correction cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerCorrection sync.Once

// RegisterCorrectionMetrics registers the correction metrics on the default registry.
func RegisterCorrectionMetrics() {
	registerCorrection.Do(func() {
		prometheus.MustRegister(CorrectionRequestsTotal)
		prometheus.MustRegister(CorrectionRequestDuration)
		prometheus.MustRegister(CorrectionTokensTotal)
		prometheus.MustRegister(CorrectionCacheTotal)
	})
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Extractor Prometheus metrics.
var (
	ExtractorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dishdex",
			Name:      "extractor_requests_total",
			Help:      "Total number of image feature extraction requests",
		},
		[]string{"space", "status"},
	)

	ExtractorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dishdex",
			Name:      "extractor_request_duration_seconds",
			Help:      "Image feature extraction duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"space"},
	)

	ExtractorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dishdex",
			Name:      "extractor_errors_total",
			Help:      "Total image feature extraction errors",
		},
		[]string{"space", "error_type"},
	)

	ExtractorCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dishdex",
			Name:      "extractor_cache_total",
			Help:      "Query embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var extractorMetricsRegistered bool

// RegisterExtractorMetrics registers Prometheus extractor metrics. Must be called once from main.
func RegisterExtractorMetrics() {
	if extractorMetricsRegistered {
		return
	}
	prometheus.MustRegister(ExtractorRequestsTotal)
	prometheus.MustRegister(ExtractorRequestDuration)
	prometheus.MustRegister(ExtractorErrorsTotal)
	prometheus.MustRegister(ExtractorCacheTotal)
	extractorMetricsRegistered = true
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search outcome label values.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeError     = "error"
)

// Search and catalog Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dishdex",
			Name:      "search_requests_total",
			Help:      "Total number of searches by mode, space and outcome",
		},
		[]string{"mode", "space", "outcome"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dishdex",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds, extraction included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	CatalogRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dishdex",
			Name:      "catalog_rows",
			Help:      "Rows in the active catalog snapshot",
		},
		[]string{"space"},
	)

	CatalogDegenerateVectors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dishdex",
			Name:      "catalog_degenerate_vectors",
			Help:      "Near-zero vectors left unnormalized in the active catalog snapshot",
		},
		[]string{"space"},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dishdex",
			Name:      "catalog_reloads_total",
			Help:      "Catalog reload attempts",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search and catalog metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(CatalogRows)
	prometheus.MustRegister(CatalogDegenerateVectors)
	prometheus.MustRegister(CatalogReloadsTotal)
	searchMetricsRegistered = true
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesagent_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TurnsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_turns_processed_total",
			Help: "Total conversation turns processed, by resulting funnel stage.",
		},
		[]string{"stage"},
	)

	HandoversTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_handovers_total",
			Help: "Total handover decisions, by reason.",
		},
		[]string{"reason"},
	)

	LLMFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_llm_fallbacks_total",
			Help: "Total times the deterministic fallback replaced an LLM call.",
		},
		[]string{"operation"},
	)

	ProductMatchesReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesagent_product_matches_returned",
			Help:    "Number of product matches returned per turn.",
			Buckets: []float64{0, 1, 2, 3, 5, 7, 10},
		},
	)

	CatalogIndexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "salesagent_catalog_index_products",
			Help: "Number of active products in the current catalog index.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TurnsProcessedTotal,
		HandoversTotal,
		LLMFallbacksTotal,
		ProductMatchesReturned,
		CatalogIndexSize,
	)
}

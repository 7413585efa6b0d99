package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metadata",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metadata",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	CatalogRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metadata",
		Name:      "catalog_requests_total",
		Help:      "Total requests to catalog storefronts by hostname and result status.",
	}, []string{"site", "status"})

	CatalogRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metadata",
		Name:      "catalog_request_duration_seconds",
		Help:      "Catalog page fetch duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"site"})

	CandidateScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "metadata",
		Name:      "candidate_scores",
		Help:      "Distribution of candidate match scores before thresholding.",
		Buckets:   []float64{0, 20, 40, 45, 60, 80, 90, 95, 98, 100},
	})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "metadata",
		Name:      "cache_hits_total",
		Help:      "Total number of response cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "metadata",
		Name:      "cache_misses_total",
		Help:      "Total number of response cache misses.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CatalogRequestsTotal,
		CatalogRequestDuration,
		CandidateScores,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sakesearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sakesearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"method", "path"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sakesearch",
		Name:      "provider_requests_total",
		Help:      "Total requests to marketplace providers by provider name and result status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sakesearch",
		Name:      "provider_request_duration_seconds",
		Help:      "Marketplace provider request duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 2.5, 5},
	}, []string{"provider"})

	ProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sakesearch",
		Name:      "provider_available",
		Help:      "Whether a provider is available (1) or blocked by circuit breaker (0).",
	}, []string{"provider"})

	FallbackServedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sakesearch",
		Name:      "fallback_served_total",
		Help:      "Total searches answered with the curated fallback list.",
	})

	RankingCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sakesearch",
		Name:      "ranking_cache_hits_total",
		Help:      "Total number of ranking cache hits.",
	})

	RankingCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sakesearch",
		Name:      "ranking_cache_misses_total",
		Help:      "Total number of ranking cache misses.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderAvailable,
		FallbackServedTotal,
		RankingCacheHitsTotal,
		RankingCacheMissesTotal,
	)
}

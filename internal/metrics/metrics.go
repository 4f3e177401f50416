package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Catalog serving metrics. CatalogFallbacks is the structured "degraded"
// signal: operators can tell served-from-static apart from served-fresh
// without grepping warn logs.
var (
	CatalogServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_catalog_served_total",
			Help: "Catalog reads answered, labelled by backing source",
		},
		[]string{"operation", "source"},
	)

	CatalogFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_catalog_fallback_total",
			Help: "Catalog reads that degraded to the static source",
		},
		[]string{"operation", "reason"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rate_limit_rejected_total",
			Help: "Requests rejected by the rate limiter, by policy",
		},
		[]string{"policy"},
	)

	SecurityEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_security_events_total",
			Help: "Security events recorded, by type and severity",
		},
		[]string{"type", "severity"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "status"},
	)
)

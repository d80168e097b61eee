// README: Prometheus collectors for provider calls, caches and sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfinder",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Total requests sent to geocoding and routing providers",
	}, []string{"provider", "operation", "outcome"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wayfinder",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Provider request latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider", "operation"})

	FallbackRoutes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfinder",
		Subsystem: "routing",
		Name:      "fallback_routes_total",
		Help:      "Straight-line routes served because the routing provider was unavailable",
	})

	StaleSearchResults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wayfinder",
		Subsystem: "interaction",
		Name:      "stale_search_results_total",
		Help:      "Search results discarded because a newer search was issued",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfinder",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"cache"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wayfinder",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"cache"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wayfinder",
		Subsystem: "session",
		Name:      "active",
		Help:      "Current number of live map sessions",
	})
)

// ObserveProvider records one provider call. Use as:
//
//	defer metrics.ObserveProvider("osrm", "route", time.Now(), &err)
func ObserveProvider(provider, operation string, start time.Time, errp *error) {
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = "error"
	}
	ProviderRequests.WithLabelValues(provider, operation, outcome).Inc()
	ProviderLatency.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

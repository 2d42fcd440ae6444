// Package metrics provides the Prometheus endpoint and HTTP request metrics for the shop API.
// Cache metrics are defined in pkg/cache to keep that package self-contained.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the shop API.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

var (
	// RequestsTotal tracks requests by method, route pattern and status
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopapi_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks request latency by method and route pattern
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopapi_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RequestsTotal and RequestDuration for every request.
// The route label is the chi route pattern, so it must run inside a chi router.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Metrics Documentation
//
// HTTP Metrics (pkg/metrics):
//   - shopapi_http_requests_total{method, route, status} (Counter): Requests by route pattern
//   - shopapi_http_request_duration_seconds{method, route} (Histogram): Request latency
//
// Cache Metrics (pkg/cache):
//   - shopapi_cache_lookups_total{result} (Counter): Store lookups by hit/miss
//   - shopapi_cache_not_modified_total (Counter): 304 Not Modified responses
//   - shopapi_cache_precondition_failed_total (Counter): 412 Precondition Failed responses
//   - shopapi_cache_stores_total{result} (Counter): Record writes (stored, stale)
//   - shopapi_cache_invalidations_total (Counter): Invalidations after mutations
//   - shopapi_cache_revision (Gauge): Revision after the most recent invalidation
//   - shopapi_cache_errors_total{operation} (Counter): Store and hashing errors
//   - shopapi_cache_uncacheable_total{reason} (Counter): Responses served without caching
//
// Example Prometheus Queries:
//
//   # Revalidation Rate
//   rate(shopapi_cache_not_modified_total[5m]) /
//   sum(rate(shopapi_http_requests_total{method="GET"}[5m]))
//
//   # Stale Writes (writes that lost against an invalidation)
//   rate(shopapi_cache_stores_total{result="stale"}[5m])
//
//   # Store Health
//   rate(shopapi_cache_errors_total[5m]) > 0
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(shopapi_http_request_duration_seconds_bucket[5m]))

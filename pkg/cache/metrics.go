package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups tracks store lookups by result ("hit" when a record exists)
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopapi_cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// NotModifiedResponses tracks 304 short-circuits
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopapi_cache_not_modified_total",
			Help: "Total number of 304 Not Modified responses served from cache",
		},
	)

	// PreconditionFailedResponses tracks 412 short-circuits
	PreconditionFailedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopapi_cache_precondition_failed_total",
			Help: "Total number of 412 Precondition Failed responses",
		},
	)

	// CacheStores tracks record writes; "stale" writes lost against an invalidation
	CacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopapi_cache_stores_total",
			Help: "Total number of cache record writes by result",
		},
		[]string{"result"}, // "stored", "stale"
	)

	// CacheInvalidations tracks invalidations triggered by mutations
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopapi_cache_invalidations_total",
			Help: "Total number of cache invalidations",
		},
	)

	// CacheRevision exposes the last revision observed after an invalidation
	CacheRevision = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopapi_cache_revision",
			Help: "Cache revision after the most recent invalidation",
		},
	)

	// CacheErrors tracks store and hashing errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopapi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "revision", "set", "invalidate", "hash"
	)

	// UncacheableResponses tracks responses that were served but not cached
	UncacheableResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopapi_cache_uncacheable_total",
			Help: "Total number of responses not cached by reason",
		},
		[]string{"reason"}, // "status", "empty", "too_large", "cancelled"
	)
)

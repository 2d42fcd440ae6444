// Package cache provides an HTTP response cache middleware built around ETags.
//
// The middleware wraps a handler and implements:
//
// - Strong ETags computed from the response body (MD5 by default)
// - Conditional reads: If-None-Match on GET/HEAD yields 304 Not Modified
// - Conditional writes: If-Match on PUT/DELETE yields 412 Precondition Failed
// - Invalidation of the cache after every successful mutation
// - A revision number that turns writes racing an invalidation into no-ops
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create the store once per process and inject it
//	store := cache.NewMemoryStore()
//
//	mw, err := cache.NewMiddleware(cache.DefaultConfig(store))
//	if err != nil {
//		return err
//	}
//
//	http.ListenAndServe(":8080", mw.Handler(apiHandler))
//
// # Cache Keys
//
// A key is built from the lower-cased path, the lower-cased query and the values
// of a fixed, ordered list of vary headers (Accept, Accept-Language):
//
//	key := cache.KeyFromRequest(r, cache.DefaultVaryHeaders)
//
// # Revisions
//
// The store carries one global revision. The middleware snapshots it before the
// downstream handler runs and hands it back to Store.Set afterwards. If any
// invalidation happened in between, Set stores nothing:
//
//	rev, _ := store.Revision(ctx)
//	// ... slow handler, concurrent PUT invalidates ...
//	ok, _ := store.Set(ctx, rev, key, record) // ok == false
//
// Invalidation is coarse: it clears every record. Targeted invalidation would
// need records indexed by path prefix.
//
// # Stores
//
//   - MemoryStore: in-process map, the default
//   - RedisStore: shared through Redis; failures surface as ErrStoreUnavailable
//
// Store errors never fail a request. The middleware logs them and serves the
// response uncached.
//
// # Metrics
//
//   - shopapi_cache_lookups_total{result} - Lookups by hit/miss
//   - shopapi_cache_not_modified_total - 304 responses
//   - shopapi_cache_precondition_failed_total - 412 responses
//   - shopapi_cache_stores_total{result} - Record writes (stored/stale)
//   - shopapi_cache_invalidations_total - Invalidations
//   - shopapi_cache_revision - Revision after the last invalidation
//   - shopapi_cache_errors_total{operation} - Store and hashing errors
//   - shopapi_cache_uncacheable_total{reason} - Responses served without caching
package cache

package cache

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mock/mock_store.go -package=mock github.com/Sternrassler/shop-api/pkg/cache Store

// ErrStoreUnavailable indicates the backing store could not be reached.
// The middleware treats it as a cache bypass, never as a request failure.
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Record is what the cache remembers about a response.
// Records are immutable; re-caching replaces them wholesale.
type Record struct {
	// ETag is the validator of the cached response body.
	ETag ETag `json:"etag"`

	// CachedAt is when the record was created.
	CachedAt time.Time `json:"cached_at"`
}

// NewRecord creates a record for tag.
func NewRecord(tag ETag) *Record {
	return &Record{ETag: tag, CachedAt: time.Now()}
}

// Store maps cache keys to records under a global revision number.
//
// Implementations must be safe for concurrent use. Set is linearized against
// Invalidate through the revision: a Set carrying a revision older than the live
// one is a no-op.
type Store interface {
	// Get returns the record for key, or nil if there is none.
	Get(ctx context.Context, key CacheKey) (*Record, error)

	// Revision returns a snapshot of the current revision.
	Revision(ctx context.Context) (int64, error)

	// Set stores record under key if revision equals the live revision.
	// It reports whether the record was stored.
	Set(ctx context.Context, revision int64, key CacheKey, record *Record) (bool, error)

	// Invalidate drops cached records affected by a change to key and returns the new revision.
	// Current implementations drop everything.
	Invalidate(ctx context.Context, key CacheKey) (int64, error)
}

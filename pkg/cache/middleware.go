package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMaxContentSize is the largest response body that gets an ETag (20 MiB).
const DefaultMaxContentSize = 20 * 1024 * 1024

// DefaultUnsafeMethods are the methods that invalidate the cache on success.
var DefaultUnsafeMethods = []string{http.MethodPut, http.MethodDelete}

// Config holds the middleware configuration.
type Config struct {
	// Store holds cache records (required)
	Store Store

	// Hasher computes ETags (default: MD5Hasher)
	Hasher Hasher

	// Logger for cache decisions (default: global logger with component=cache)
	Logger *zerolog.Logger

	// VaryHeaders partition the cache by content negotiation (default: DefaultVaryHeaders)
	VaryHeaders []string

	// MaxContentSize is the largest body that is hashed and cached (default: 20 MiB)
	MaxContentSize int64

	// UnsafeMethods invalidate the cache and honor If-Match (default: PUT, DELETE)
	UnsafeMethods []string
}

// DefaultConfig returns the reference configuration around store.
func DefaultConfig(store Store) Config {
	return Config{
		Store:          store,
		Hasher:         MD5Hasher{},
		VaryHeaders:    DefaultVaryHeaders,
		MaxContentSize: DefaultMaxContentSize,
		UnsafeMethods:  DefaultUnsafeMethods,
	}
}

// Middleware performs ETag negotiation and response caching around a handler.
// It keeps no per-request state; everything shared lives in the Store.
type Middleware struct {
	store          Store
	hasher         Hasher
	logger         zerolog.Logger
	varyHeaders    []string
	maxContentSize int64
	unsafeMethods  map[string]struct{}
}

// NewMiddleware creates a cache middleware.
func NewMiddleware(cfg Config) (*Middleware, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.MaxContentSize < 0 {
		return nil, fmt.Errorf("max content size must be >= 0 (got %d)", cfg.MaxContentSize)
	}

	m := &Middleware{
		store:          cfg.Store,
		hasher:         cfg.Hasher,
		varyHeaders:    cfg.VaryHeaders,
		maxContentSize: cfg.MaxContentSize,
		unsafeMethods:  make(map[string]struct{}),
	}
	if m.hasher == nil {
		m.hasher = MD5Hasher{}
	}
	if m.varyHeaders == nil {
		m.varyHeaders = DefaultVaryHeaders
	}
	if m.maxContentSize == 0 {
		m.maxContentSize = DefaultMaxContentSize
	}

	unsafeMethods := cfg.UnsafeMethods
	if unsafeMethods == nil {
		unsafeMethods = DefaultUnsafeMethods
	}
	for _, method := range unsafeMethods {
		m.unsafeMethods[strings.ToUpper(method)] = struct{}{}
	}

	if cfg.Logger != nil {
		m.logger = cfg.Logger.With().Str("component", "cache").Logger()
	} else {
		m.logger = log.With().Str("component", "cache").Logger()
	}

	return m, nil
}

type requestClass int

const (
	classOther requestClass = iota
	classRead
	classUnsafe
)

func (m *Middleware) classify(method string) requestClass {
	if method == http.MethodGet || method == http.MethodHead {
		return classRead
	}
	if _, ok := m.unsafeMethods[method]; ok {
		return classUnsafe
	}
	return classOther
}

// Handler wraps next with caching.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.serve(w, r, next)
	})
}

func (m *Middleware) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx := r.Context()
	class := m.classify(r.Method)
	key := KeyFromRequest(r, m.varyHeaders)
	logger := m.logger.With().Str("method", r.Method).Str("path", key.Path).Logger()

	record, found := m.lookup(ctx, key, logger)

	// Step 1: Conditional evaluation
	switch class {
	case classRead:
		if record != nil {
			if values := r.Header.Values("If-None-Match"); len(values) > 0 && matchesHeader(&record.ETag, strings.Join(values, ","), false) {
				logger.Debug().Str("etag", record.ETag.String()).Msg("304 Not Modified - served from cache")
				NotModifiedResponses.Inc()
				setETag(w, record.ETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	case classUnsafe:
		// Without a lookup result the precondition cannot be judged; the request runs.
		if values := r.Header.Values("If-Match"); len(values) > 0 && found {
			if record == nil || !matchesHeader(&record.ETag, strings.Join(values, ","), true) {
				logger.Debug().Bool("cached", record != nil).Msg("412 Precondition Failed")
				PreconditionFailedResponses.Inc()
				if record != nil {
					setETag(w, record.ETag)
				}
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
		}
	}

	// Step 2: Snapshot the revision before running the handler.
	// A concurrent invalidation makes the later Set a no-op.
	revision, err := m.store.Revision(ctx)
	canStore := err == nil
	if err != nil {
		CacheErrors.WithLabelValues("revision").Inc()
		logger.Warn().Err(err).Msg("Cache revision unavailable - response will not be cached")
	}

	// Step 3: Execute downstream into the buffer
	buf := acquireBuffer(w)
	defer buf.release()

	next.ServeHTTP(buf, r)

	status := buf.StatusCode()
	success := status >= 200 && status < 300

	// Step 4: Invalidate on successful mutation, even if the client went away
	if class == classUnsafe && success {
		newRevision, err := m.store.Invalidate(context.WithoutCancel(ctx), key)
		if err != nil {
			CacheErrors.WithLabelValues("invalidate").Inc()
			logger.Warn().Err(err).Msg("Cache invalidation failed")
			canStore = false
		} else {
			CacheInvalidations.Inc()
			CacheRevision.Set(float64(newRevision))
			logger.Debug().Int64("revision", newRevision).Msg("Cache invalidated")
			revision = newRevision
			canStore = true
		}
	}

	// Step 5: Build and store a record
	if newRecord := m.recordFor(ctx, buf, logger); newRecord != nil {
		setETag(w, newRecord.ETag)
		if canStore {
			m.save(ctx, revision, m.storeKey(key, buf, logger), newRecord, logger)
		}
	}

	// Step 6: Flush; headers are final from here on
	if err := buf.flush(w, r.Method != http.MethodHead); err != nil {
		logger.Debug().Err(err).Msg("Failed to write response body")
	}
}

// lookup returns the cached record for key. ok is false when the store could
// not answer, which is different from a miss.
func (m *Middleware) lookup(ctx context.Context, key CacheKey, logger zerolog.Logger) (record *Record, ok bool) {
	record, err := m.store.Get(ctx, key)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		logger.Warn().Err(err).Msg("Cache get error - skipping conditional evaluation")
		return nil, false
	}
	if record == nil || record.ETag.IsZero() {
		CacheLookups.WithLabelValues("miss").Inc()
		return nil, true
	}
	CacheLookups.WithLabelValues("hit").Inc()
	return record, true
}

// recordFor returns a record for the buffered response, or nil if it is not cacheable.
func (m *Middleware) recordFor(ctx context.Context, buf *responseBuffer, logger zerolog.Logger) *Record {
	status := buf.StatusCode()
	size := int64(buf.Len())

	switch {
	case ctx.Err() != nil:
		UncacheableResponses.WithLabelValues("cancelled").Inc()
		return nil
	case status < 200 || status >= 300:
		UncacheableResponses.WithLabelValues("status").Inc()
		return nil
	case size == 0:
		UncacheableResponses.WithLabelValues("empty").Inc()
		return nil
	case size > m.maxContentSize:
		UncacheableResponses.WithLabelValues("too_large").Inc()
		logger.Debug().Int64("size", size).Msg("Response too large to cache")
		return nil
	}

	tag, err := m.hasher.Hash(ctx, bytes.NewReader(buf.Bytes()))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			UncacheableResponses.WithLabelValues("cancelled").Inc()
			return nil
		}
		CacheErrors.WithLabelValues("hash").Inc()
		logger.Warn().Err(err).Msg("Failed to hash response")
		return nil
	}
	return NewRecord(tag)
}

func (m *Middleware) save(ctx context.Context, revision int64, key CacheKey, record *Record, logger zerolog.Logger) {
	stored, err := m.store.Set(ctx, revision, key, record)
	switch {
	case err != nil:
		CacheErrors.WithLabelValues("set").Inc()
		logger.Warn().Err(err).Msg("Failed to cache response")
	case !stored:
		CacheStores.WithLabelValues("stale").Inc()
		logger.Debug().Int64("revision", revision).Msg("Skipped stale cache write")
	default:
		CacheStores.WithLabelValues("stored").Inc()
		logger.Debug().
			Str("etag", record.ETag.String()).
			Int64("revision", revision).
			Msg("Cached response")
	}
}

// storeKey returns the key a new record is stored under.
// A 201 Created with a Location is cached at the created resource's path.
func (m *Middleware) storeKey(key CacheKey, buf *responseBuffer, logger zerolog.Logger) CacheKey {
	if buf.StatusCode() != http.StatusCreated {
		return key
	}
	location := buf.Header().Get("Location")
	if location == "" {
		return key
	}
	u, err := url.Parse(location)
	if err != nil || u.Path == "" {
		logger.Debug().Str("location", location).Msg("Ignoring unparsable Location")
		return key
	}
	return key.WithPath(u.Path)
}

func setETag(w http.ResponseWriter, tag ETag) {
	w.Header().Set("ETag", tag.String())
}

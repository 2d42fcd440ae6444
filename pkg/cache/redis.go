package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keys for the shared cache state.
const (
	RedisKeyRecords  = "shopapi:cache:records"
	RedisKeyRevision = "shopapi:cache:revision"
)

// ErrInvalidEntry indicates a stored record could not be decoded.
var ErrInvalidEntry = errors.New("invalid cache entry")

// setScript writes a record only while the revision is unchanged.
// KEYS: revision, records. ARGV: expected revision, field, payload.
var setScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// invalidateScript drops all records and bumps the revision in one step.
// KEYS: revision, records.
var invalidateScript = redis.NewScript(`
redis.call('DEL', KEYS[2])
return redis.call('INCR', KEYS[1])
`)

// RedisStore is a Store shared through Redis.
// Records are kept in a single hash; the revision is a plain counter key.
type RedisStore struct {
	redis *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key CacheKey) (*Record, error) {
	data, err := s.redis.HGet(ctx, RedisKeyRecords, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: redis hget: %v", ErrStoreUnavailable, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &record, nil
}

// Revision implements Store.
func (s *RedisStore) Revision(ctx context.Context) (int64, error) {
	revision, err := s.redis.Get(ctx, RedisKeyRevision).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: redis get: %v", ErrStoreUnavailable, err)
	}
	return revision, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, revision int64, key CacheKey, record *Record) (bool, error) {
	if record == nil {
		return false, nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("marshal cache record: %w", err)
	}

	stored, err := setScript.Run(ctx, s.redis,
		[]string{RedisKeyRevision, RedisKeyRecords},
		revision, key.String(), data,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: redis set: %v", ErrStoreUnavailable, err)
	}
	return stored == 1, nil
}

// Invalidate implements Store. Like MemoryStore it drops every record.
func (s *RedisStore) Invalidate(ctx context.Context, _ CacheKey) (int64, error) {
	revision, err := invalidateScript.Run(ctx, s.redis,
		[]string{RedisKeyRevision, RedisKeyRecords},
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: redis invalidate: %v", ErrStoreUnavailable, err)
	}
	return revision, nil
}

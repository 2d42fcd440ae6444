package cache

import (
	"context"
	"sync"
)

// MemoryStore is an unbounded in-process Store.
// Records live until the next invalidation or process exit.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[CacheKey]*Record
	revision int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store at revision 0.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[CacheKey]*Record),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key CacheKey) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[key], nil
}

// Revision implements Store.
func (s *MemoryStore) Revision(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, revision int64, key CacheKey, record *Record) (bool, error) {
	if record == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if revision != s.revision {
		return false, nil
	}
	s.records[key] = record
	return true, nil
}

// Invalidate implements Store. The whole store is cleared regardless of key;
// a path-indexed structure would allow dropping only the affected subtree.
func (s *MemoryStore) Invalidate(_ context.Context, _ CacheKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.records)
	s.revision++
	return s.revision, nil
}

// Len returns the number of cached records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// runStoreContract exercises the Store contract shared by all implementations.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	keyA := CacheKey{Path: "/shops/a"}
	keyB := CacheKey{Path: "/shops/b"}
	record := NewRecord(ETag{Value: "abc", Strong: true})

	t.Run("empty store", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Get(ctx, keyA)
		require.NoError(t, err)
		assert.Nil(t, got)

		rev, err := s.Revision(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rev)
	})

	t.Run("set and get", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Set(ctx, 0, keyA, record)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Get(ctx, keyA)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, record.ETag, got.ETag)

		other, err := s.Get(ctx, keyB)
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("set replaces record", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Set(ctx, 0, keyA, record)
		require.NoError(t, err)
		replacement := NewRecord(ETag{Value: "def", Strong: true})
		ok, err := s.Set(ctx, 0, keyA, replacement)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Get(ctx, keyA)
		require.NoError(t, err)
		assert.Equal(t, "def", got.ETag.Value)
	})

	t.Run("nil record is rejected", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Set(ctx, 0, keyA, nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set with stale revision is a no-op", func(t *testing.T) {
		s := newStore(t)
		rev, err := s.Invalidate(ctx, keyA)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rev)

		ok, err := s.Set(ctx, 0, keyA, record)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Get(ctx, keyA)
		require.NoError(t, err)
		assert.Nil(t, got)

		ok, err = s.Set(ctx, rev, keyA, record)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("invalidate clears everything", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Set(ctx, 0, keyA, record)
		require.NoError(t, err)
		_, err = s.Set(ctx, 0, keyB, record)
		require.NoError(t, err)

		_, err = s.Invalidate(ctx, keyA)
		require.NoError(t, err)

		for _, k := range []CacheKey{keyA, keyB} {
			got, err := s.Get(ctx, k)
			require.NoError(t, err)
			assert.Nil(t, got, k.Path)
		}
	})

	t.Run("invalidate twice", func(t *testing.T) {
		s := newStore(t)
		start, err := s.Revision(ctx)
		require.NoError(t, err)

		for i := int64(1); i <= 2; i++ {
			rev, err := s.Invalidate(ctx, keyA)
			require.NoError(t, err)
			assert.Equal(t, start+i, rev)

			got, err := s.Get(ctx, keyA)
			require.NoError(t, err)
			assert.Nil(t, got)
		}

		rev, err := s.Revision(ctx)
		require.NoError(t, err)
		assert.Equal(t, start+2, rev)
	})

	t.Run("racing writers", func(t *testing.T) {
		s := newStore(t)
		rev, err := s.Revision(ctx)
		require.NoError(t, err)

		// Writer A lands before the invalidation.
		okA, err := s.Set(ctx, rev, keyA, NewRecord(ETag{Value: "a", Strong: true}))
		require.NoError(t, err)
		assert.True(t, okA)

		_, err = s.Invalidate(ctx, keyA)
		require.NoError(t, err)

		// Writer B snapshotted the same revision and must lose.
		okB, err := s.Set(ctx, rev, keyA, NewRecord(ETag{Value: "b", Strong: true}))
		require.NoError(t, err)
		assert.False(t, okB)

		got, err := s.Get(ctx, keyA)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("concurrent access", func(t *testing.T) {
		s := newStore(t)
		var g errgroup.Group
		var mu sync.Mutex
		revisions := make(map[int64]bool)

		for i := 0; i < 20; i++ {
			g.Go(func() error {
				rev, err := s.Revision(ctx)
				if err != nil {
					return err
				}
				if _, err := s.Set(ctx, rev, keyA, record); err != nil {
					return err
				}
				_, err = s.Get(ctx, keyA)
				return err
			})
			g.Go(func() error {
				rev, err := s.Invalidate(ctx, keyB)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				revisions[rev] = true
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Len(t, revisions, 20, "every invalidation must yield a distinct revision")
		rev, err := s.Revision(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(20), rev)
	})
}

// Package storagetest holds the behaviour every storage.LinkStore must share.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shortlink/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises store against the LinkStore contract. Ids are prefixed
// per subtest so a shared database does not need truncating between runs.
func Run(t *testing.T, store storage.LinkStore) {
	t.Helper()
	prefix := fmt.Sprintf("t%d", time.Now().UnixNano()%1_000_000)
	ctx := context.Background()

	newLink := func(id string) *storage.Link {
		return &storage.Link{
			ID:        prefix + id,
			URL:       "https://example.com/" + id,
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
	}

	t.Run("InsertThenLookup", func(t *testing.T) {
		link := newLink("a1")
		require.NoError(t, store.Insert(ctx, link))

		got, err := store.Lookup(ctx, link.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, link.ID, got.ID)
		assert.Equal(t, link.URL, got.URL)
		assert.Equal(t, int64(0), got.Clicks)
		assert.True(t, link.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, link.CreatedAt)
	})

	t.Run("Exists", func(t *testing.T) {
		link := newLink("b1")
		exists, err := store.Exists(ctx, link.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, store.Insert(ctx, link))
		exists, err = store.Exists(ctx, link.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("DuplicateInsert", func(t *testing.T) {
		link := newLink("c1")
		require.NoError(t, store.Insert(ctx, link))

		dup := newLink("c1")
		dup.URL = "https://other.example.com"
		err := store.Insert(ctx, dup)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		got, err := store.Lookup(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, link.URL, got.URL, "duplicate insert must not overwrite")
	})

	t.Run("LookupMiss", func(t *testing.T) {
		got, err := store.Lookup(ctx, prefix+"zz")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("IncrementClicks", func(t *testing.T) {
		link := newLink("d1")
		require.NoError(t, store.Insert(ctx, link))

		require.NoError(t, store.IncrementClicks(ctx, link.ID, 0))
		require.NoError(t, store.IncrementClicks(ctx, link.ID, 1))
		got, err := store.Lookup(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Clicks)

		// Stale expectation loses silently and never lowers the count.
		require.NoError(t, store.IncrementClicks(ctx, link.ID, 0))
		got, err = store.Lookup(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Clicks)
	})

	t.Run("IncrementUnknown", func(t *testing.T) {
		assert.NoError(t, store.IncrementClicks(ctx, prefix+"nope", 0))
		got, err := store.Lookup(ctx, prefix+"nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ConcurrentIncrements", func(t *testing.T) {
		link := newLink("e1")
		require.NoError(t, store.Insert(ctx, link))

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				current, err := store.Lookup(ctx, link.ID)
				if err != nil || current == nil {
					return
				}
				_ = store.IncrementClicks(ctx, link.ID, current.Clicks)
			}()
		}
		wg.Wait()

		got, err := store.Lookup(ctx, link.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Clicks, int64(1))
		assert.LessOrEqual(t, got.Clicks, int64(n))
	})
}

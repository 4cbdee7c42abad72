package kv

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unowned-ai/alive/pkg/db"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	conn, err := db.OpenDBConnection(db.MemoryDSN, false, "NORMAL")
	require.NoError(t, err)
	require.NoError(t, db.InitializeSchema(conn, db.TargetSchemaVersion))
	s := NewSQLiteStore(conn)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMemStore(t *testing.T) Store {
	t.Helper()
	return NewMemStore()
}

var implementations = map[string]func(t *testing.T) Store{
	"sqlite": newSQLiteStore,
	"memory": newMemStore,
}

func TestStore_GetMissing(t *testing.T) {
	for name, newStore := range implementations {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			_, err := s.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutAndGet(t *testing.T) {
	for name, newStore := range implementations {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			rev, err := s.Put(ctx, "alive_moments", []byte(`[]`), 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), rev)

			item, err := s.Get(ctx, "alive_moments")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[]`), item.Value)
			assert.Equal(t, int64(1), item.Revision)

			rev, err = s.Put(ctx, "alive_moments", []byte(`[{"id":"a"}]`), item.Revision)
			require.NoError(t, err)
			assert.Equal(t, int64(2), rev)

			item, err = s.Get(ctx, "alive_moments")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[{"id":"a"}]`), item.Value)
			assert.Equal(t, int64(2), item.Revision)
		})
	}
}

func TestStore_PutStaleRevisionConflicts(t *testing.T) {
	for name, newStore := range implementations {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			_, err := s.Put(ctx, "k", []byte("v1"), 0)
			require.NoError(t, err)

			// Creating an existing slot conflicts.
			_, err = s.Put(ctx, "k", []byte("again"), 0)
			assert.ErrorIs(t, err, ErrConflict)

			_, err = s.Put(ctx, "k", []byte("v2"), 1)
			require.NoError(t, err)

			// Writer that read revision 1 lost the race.
			_, err = s.Put(ctx, "k", []byte("stale"), 1)
			assert.ErrorIs(t, err, ErrConflict)

			item, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), item.Value)

			// Updating a slot that was never created conflicts as well.
			_, err = s.Put(ctx, "ghost", []byte("x"), 3)
			assert.ErrorIs(t, err, ErrConflict)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, newStore := range implementations {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			for _, k := range []string{"a", "b", "c"} {
				_, err := s.Put(ctx, k, []byte(k), 0)
				require.NoError(t, err)
			}

			require.NoError(t, s.Delete(ctx, "a", "b", "missing"))
			require.NoError(t, s.Delete(ctx))

			_, err := s.Get(ctx, "a")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Get(ctx, "b")
			assert.ErrorIs(t, err, ErrNotFound)
			item, err := s.Get(ctx, "c")
			require.NoError(t, err)
			assert.Equal(t, []byte("c"), item.Value)

			// A deleted slot can be created again, above its old revision.
			rev, err := s.Put(ctx, "a", []byte("again"), 0)
			require.NoError(t, err)
			assert.Equal(t, int64(3), rev)

			// Deleting a tombstone is a no-op.
			require.NoError(t, s.Delete(ctx, "missing"))
			_, err = s.Put(ctx, "missing", []byte("first"), 0)
			require.NoError(t, err)
		})
	}
}

func TestStore_StaleRevisionAfterDeleteConflicts(t *testing.T) {
	for name, newStore := range implementations {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			stale, err := s.Put(ctx, "alive_moments", []byte(`["old"]`), 0)
			require.NoError(t, err)

			require.NoError(t, s.Delete(ctx, "alive_moments"))
			_, err = s.Put(ctx, "alive_moments", []byte(`["stale"]`), stale)
			assert.ErrorIs(t, err, ErrConflict, "a tombstone rejects revisions read before the delete")

			_, err = s.Put(ctx, "alive_moments", []byte(`["after clear"]`), 0)
			require.NoError(t, err)

			// A writer that read the slot before the clear must not win.
			_, err = s.Put(ctx, "alive_moments", []byte(`["stale"]`), stale)
			assert.ErrorIs(t, err, ErrConflict)

			item, err := s.Get(ctx, "alive_moments")
			require.NoError(t, err)
			assert.Equal(t, []byte(`["after clear"]`), item.Value)
			assert.Greater(t, item.Revision, stale)
		})
	}
}

func TestMemStore_GetReturnsCopy(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_, err := s.Put(ctx, "k", []byte("abc"), 0)
	require.NoError(t, err)

	item, err := s.Get(ctx, "k")
	require.NoError(t, err)
	item.Value[0] = 'z'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again.Value)
}

func TestMemStore_ConcurrentCompareAndSwap(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_, err := s.Put(ctx, "counter", []byte("0"), 0)
	require.NoError(t, err)

	const writers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put(ctx, "counter", []byte("1"), 1); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one writer may win a given revision")
}

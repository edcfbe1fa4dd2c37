// Package storagetest holds behaviour checks shared by every storage.Store
// backend.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusbubble/backend/internal/storage"
)

// Run exercises newStore against the storage.Store contract.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("missing keys are absent", func(t *testing.T) {
		store := newStore(t)
		got, err := store.Get(context.Background(), "nope")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("read after write", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, map[string][]byte{
			"timerState": []byte(`{"status":"idle"}`),
			"settings":   []byte(`{"defaultDuration":25}`),
		}))

		got, err := store.Get(ctx, "timerState", "settings", "sessions")
		require.NoError(t, err)
		assert.Equal(t, `{"status":"idle"}`, string(got["timerState"]))
		assert.Equal(t, `{"defaultDuration":25}`, string(got["settings"]))
		_, ok := got["sessions"]
		assert.False(t, ok)
	})

	t.Run("overwrite", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, map[string][]byte{"k": []byte("one")}))
		require.NoError(t, store.Set(ctx, map[string][]byte{"k": []byte("two")}))

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got["k"]))
	})

	t.Run("remove and clear", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, map[string][]byte{
			"a": []byte("1"),
			"b": []byte("2"),
			"c": []byte("3"),
		}))
		require.NoError(t, store.Remove(ctx, "a"))

		got, err := store.Get(ctx, "a", "b", "c")
		require.NoError(t, err)
		assert.Len(t, got, 2)

		require.NoError(t, store.Clear(ctx))
		got, err = store.Get(ctx, "a", "b", "c")
		require.NoError(t, err)
		assert.Empty(t, got)

		require.NoError(t, store.Set(ctx, map[string][]byte{"d": []byte("4")}))
		got, err = store.Get(ctx, "d")
		require.NoError(t, err)
		assert.Equal(t, "4", string(got["d"]))
	})

	t.Run("returned values are not aliased", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		value := []byte("abc")
		require.NoError(t, store.Set(ctx, map[string][]byte{"k": value}))
		value[0] = 'z'

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got["k"]))
	})
}

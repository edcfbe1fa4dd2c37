package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusbubble/backend/internal/storage"
	"focusbubble/backend/internal/storage/storagetest"
)

func TestBoltStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		store, err := Open(filepath.Join(t.TempDir(), "focus.bolt"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestBoltSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "focus.bolt")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, map[string][]byte{"sessions": []byte(`[]`)}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got["sessions"]))
}

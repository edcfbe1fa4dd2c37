package storage

import (
	"context"
	"errors"
	"os"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store closed")

// Store is the durable key-value capability the background service persists
// into. Keys missing from Get's result were never written or were removed;
// that is not an error. A completed Set is visible to every later Get in the
// same process.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, items map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	Close() error
}

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

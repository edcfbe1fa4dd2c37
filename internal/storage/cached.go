package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached is a write-through LRU read cache in front of another Store.
// Writes reach the backend before the cache is updated, so a failed write
// never leaves a value visible that was not persisted.
type Cached struct {
	backend Store
	cache   *lru.Cache[string, []byte]
}

func NewCached(backend Store, size int) (*Cached, error) {
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Cached{backend: backend, cache: cache}, nil
}

func (c *Cached) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	missing := make([]string, 0, len(keys))
	for _, key := range keys {
		if value, ok := c.cache.Get(key); ok {
			out[key] = copyBytes(value)
			continue
		}
		missing = append(missing, key)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.backend.Get(ctx, missing...)
	if err != nil {
		return nil, err
	}
	for key, value := range loaded {
		c.cache.Add(key, copyBytes(value))
		out[key] = value
	}
	return out, nil
}

func (c *Cached) Set(ctx context.Context, items map[string][]byte) error {
	if err := c.backend.Set(ctx, items); err != nil {
		for key := range items {
			c.cache.Remove(key)
		}
		return err
	}
	for key, value := range items {
		c.cache.Add(key, copyBytes(value))
	}
	return nil
}

func (c *Cached) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.cache.Remove(key)
	}
	return c.backend.Remove(ctx, keys...)
}

func (c *Cached) Clear(ctx context.Context) error {
	c.cache.Purge()
	return c.backend.Clear(ctx)
}

func (c *Cached) Close() error {
	c.cache.Purge()
	return c.backend.Close()
}

// Len reports the number of cached keys.
func (c *Cached) Len() int {
	return c.cache.Len()
}

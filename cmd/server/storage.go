package main

import (
	"fmt"

	"focusbubble/backend/internal/config"
	"focusbubble/backend/internal/storage"
	"focusbubble/backend/internal/storage/bolt"
	"focusbubble/backend/internal/storage/redis"
	"focusbubble/backend/internal/storage/sqlite"
)

// openStorage opens the configured backend. Durable backends sit behind a
// write-through LRU cache.
func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	var backend storage.Store
	switch cfg.Type {
	case "memory":
		return storage.NewMemory(), nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		backend = store
	case "bolt":
		store, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		backend = store
	case "redis":
		store, err := redis.Open(cfg.Redis)
		if err != nil {
			return nil, err
		}
		backend = store
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	cached, err := storage.NewCached(backend, cfg.CacheSize)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return cached, nil
}

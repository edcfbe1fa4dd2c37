package bolt

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"focusbubble/backend/internal/storage"
)

const bucketKV = "kv"

// Store implements storage.Store using a single bbolt bucket.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return storage.EnsureDir(dir)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketKV)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketKV, err)
		}
		return nil
	})
}

func (s *Store) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketKV))
		if bucket == nil {
			return fmt.Errorf("bucket %s missing", bucketKV)
		}
		for _, key := range keys {
			value := bucket.Get([]byte(key))
			if value == nil {
				continue
			}
			// bbolt values are only valid for the life of the transaction.
			copied := make([]byte, len(value))
			copy(copied, value)
			out[key] = copied
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Set(_ context.Context, items map[string][]byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketKV))
		if bucket == nil {
			return fmt.Errorf("bucket %s missing", bucketKV)
		}
		for key, value := range items {
			if err := bucket.Put([]byte(key), value); err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *Store) Remove(_ context.Context, keys ...string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketKV))
		if bucket == nil {
			return fmt.Errorf("bucket %s missing", bucketKV)
		}
		for _, key := range keys {
			if err := bucket.Delete([]byte(key)); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *Store) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketKV)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("drop bucket %s: %w", bucketKV, err)
		}
		if _, err := tx.CreateBucket([]byte(bucketKV)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketKV, err)
		}
		return nil
	})
}

// Close closes the underlying store database.
func (s *Store) Close() error {
	return s.db.Close()
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"focusbubble/backend/internal/db"
)

// Store implements storage.Store over the kv table.
type Store struct {
	db      *sql.DB
	ownsDB  bool
	nowFunc func() time.Time
}

// Open opens the database at path, applies migrations and returns a store
// that closes the database on Close.
func Open(path string) (*Store, error) {
	database, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.RunMigrations(database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	store := New(database)
	store.ownsDB = true
	return store, nil
}

// New wraps an already migrated database. Close leaves the database open.
func New(database *sql.DB) *Store {
	return &Store{db: database, nowFunc: time.Now}
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]interface{}, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT key, value FROM kv WHERE key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan kv row: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv rows: %w", err)
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.nowFunc().UTC().Format(time.RFC3339Nano)
	for key, value := range items {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key,
			value,
			now,
		); err != nil {
			return fmt.Errorf("set key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	args := make([]interface{}, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("remove keys: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear kv: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"focusbubble/backend/internal/config"
)

// Store implements storage.Store using Redis strings under a key prefix.
type Store struct {
	client *redis.Client
	prefix string
}

// Open creates a new Redis-backed storage instance.
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port.
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: cfg.KeyPrefix}, nil
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}

	values, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}
	for i, value := range values {
		switch v := value.(type) {
		case nil:
		case string:
			out[keys[i]] = []byte(v)
		default:
			return nil, fmt.Errorf("unexpected value type %T for %s", value, keys[i])
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range items {
			pipe.Set(ctx, s.key(key), value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set keys: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("del keys: %w", err)
	}
	return nil
}

// Clear removes every key under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan keys: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("del keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

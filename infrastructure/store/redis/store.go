// ABOUTME: Redis key-value store using go-redis client
// ABOUTME: Batches reads with MGET and writes through a transactional pipeline

package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"filter-assets/pkg/config"
)

// Store implements interfaces.Store using Redis
type Store struct {
	client redis.UniversalClient
	prefix string
}

// NewStore connects to Redis and verifies the connection
func NewStore(cfg config.RedisConfig) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewStoreWithClient wraps an existing client. prefix namespaces every key.
func NewStoreWithClient(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Get retrieves the values stored under keys in one round trip
func (s *Store) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.client.MGet(ctx, s.prefixed(keys)...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		switch value := v.(type) {
		case string:
			out[keys[i]] = []byte(value)
		case []byte:
			out[keys[i]] = value
		}
	}
	return out, nil
}

// Set stores every key/value pair atomically
func (s *Store) Set(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range items {
			pipe.Set(ctx, s.prefix+key, value, 0)
		}
		return nil
	})
	return err
}

// Remove deletes the given keys
func (s *Store) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, s.prefixed(keys)...).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) prefixed(keys []string) []string {
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = s.prefix + key
	}
	return out
}

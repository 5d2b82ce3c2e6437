// ABOUTME: In-memory key-value store backed by patrickmn/go-cache
// ABOUTME: Keeps registry snapshots and asset bodies for the life of the process

package memory

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// Store implements interfaces.Store in process memory. Values never expire.
type Store struct {
	items *gocache.Cache
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves the values stored under keys
func (s *Store) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		v, found := s.items.Get(key)
		if !found {
			continue
		}
		value, ok := v.([]byte)
		if !ok {
			continue
		}
		out[key] = append([]byte(nil), value...)
	}
	return out, nil
}

// Set stores every key/value pair of items
func (s *Store) Set(ctx context.Context, items map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for key, value := range items {
		s.items.Set(key, append([]byte(nil), value...), gocache.NoExpiration)
	}
	return nil
}

// Remove deletes the given keys
func (s *Store) Remove(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, key := range keys {
		s.items.Delete(key)
	}
	return nil
}

// Len returns the number of stored keys
func (s *Store) Len() int {
	return s.items.ItemCount()
}

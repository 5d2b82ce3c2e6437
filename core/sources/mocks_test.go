package sources

import (
	"context"
	"sync"
	"sync/atomic"

	"filter-assets/core/domain"
	"filter-assets/core/errors"
	"filter-assets/core/fetcher"
)

// mapStore is an in-memory Store
type mapStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	getCalls atomic.Int32
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (s *mapStore) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	s.getCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (s *mapStore) Set(ctx context.Context, items map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range items {
		s.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (s *mapStore) Remove(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// mockCache records removals
type mockCache struct {
	mu      sync.Mutex
	removed []string
	known   []string
}

func (m *mockCache) Remove(ctx context.Context, matcher domain.Matcher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.known {
		if matcher.Match(k) {
			m.removed = append(m.removed, k)
		}
	}
	return nil
}

func (m *mockCache) removedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

// mockFetcher serves the bootstrap manifest
type mockFetcher struct {
	fetchFunc func(ctx context.Context, url string) (fetcher.Result, error)
	calls     atomic.Int32
}

func (m *mockFetcher) FetchText(ctx context.Context, url string) (fetcher.Result, error) {
	m.calls.Add(1)
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, url)
	}
	return fetcher.Result{URL: url}, &errors.NotFoundError{Resource: "local asset", ID: url}
}

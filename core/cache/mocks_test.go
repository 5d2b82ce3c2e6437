package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"filter-assets/core/interfaces"
)

// mapStore is an in-memory Store
type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (s *mapStore) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
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
	s.sets++
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

func (s *mapStore) raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *mapStore) put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// prefixCodec marks encoded values with a prefix
type prefixCodec struct {
	failDecode bool
	closed     *bool
}

var codecPrefix = []byte("ENC:")

func (c *prefixCodec) Encode(src []byte) ([]byte, error) {
	return append(append([]byte(nil), codecPrefix...), src...), nil
}

func (c *prefixCodec) Decode(src []byte) ([]byte, error) {
	if c.failDecode {
		return nil, errors.New("corrupt frame")
	}
	return bytes.TrimPrefix(src, codecPrefix), nil
}

func (c *prefixCodec) IsEncoded(src []byte) bool {
	return bytes.HasPrefix(src, codecPrefix)
}

func (c *prefixCodec) Close() error {
	if c.closed != nil {
		*c.closed = true
	}
	return nil
}

// prefixDetected recognises prefixCodec framing without a codec instance
func prefixDetected(src []byte) bool {
	return bytes.HasPrefix(src, codecPrefix)
}

func prefixFactory(c *prefixCodec) interfaces.CodecFactory {
	return func() (interfaces.Codec, error) { return c, nil }
}

// manualClock is a settable clock
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

package updater

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"filter-assets/core/domain"
	"filter-assets/core/fetcher"
	"filter-assets/core/sources"
)

// fakeSources is an in-memory SourceRegistry
type fakeSources struct {
	mu        sync.Mutex
	items     []sources.Item
	patches   map[string][]domain.SourcePatch
	manifests []string
}

func newFakeSources(items ...sources.Item) *fakeSources {
	return &fakeSources{items: items, patches: make(map[string][]domain.SourcePatch)}
}

func (f *fakeSources) Entries(ctx context.Context) ([]sources.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sources.Item(nil), f.items...), nil
}

func (f *fakeSources) Register(ctx context.Context, key string, patch domain.SourcePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches[key] = append(f.patches[key], patch)
	return nil
}

func (f *fakeSources) Reconcile(ctx context.Context, manifest []byte, silent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifests = append(f.manifests, string(manifest))
	return nil
}

func (f *fakeSources) patchesFor(key string) []domain.SourcePatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SourcePatch(nil), f.patches[key]...)
}

// fakeCache is an in-memory CacheRegistry
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	content map[string]string
	removed []string
	now     func() int64
}

func newFakeCache(now func() int64) *fakeCache {
	return &fakeCache{
		entries: make(map[string]domain.CacheEntry),
		content: make(map[string]string),
		now:     now,
	}
}

func (c *fakeCache) Entry(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *fakeCache) Write(ctx context.Context, key, content, sourceURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[key] = domain.CacheEntry{WriteTime: now, ReadTime: now, RemoteURL: sourceURL}
	c.content[key] = content
	return nil
}

func (c *fakeCache) Remove(ctx context.Context, m domain.Matcher) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if m.Match(key) {
			delete(c.entries, key)
			delete(c.content, key)
			c.removed = append(c.removed, key)
		}
	}
	return nil
}

func (c *fakeCache) set(key string, e domain.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

func (c *fakeCache) get(key string) (domain.CacheEntry, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, c.content[key], ok
}

func (c *fakeCache) removedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.removed...)
}

// fakeFetcher serves documents, tracking order and concurrency
type fakeFetcher struct {
	mu      sync.Mutex
	docs    map[string]string
	calls   []string
	release chan struct{}
	hold    time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
	listCalls atomic.Int32
}

func newFakeFetcher(docs map[string]string) *fakeFetcher {
	return &fakeFetcher{docs: docs}
}

func (f *fakeFetcher) FetchText(ctx context.Context, url string) (fetcher.Result, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		max := f.maxActive.Load()
		if n <= max || f.maxActive.CompareAndSwap(max, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, url)
	content, ok := f.docs[url]
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if f.hold > 0 {
		time.Sleep(f.hold)
	}
	if !ok {
		return fetcher.Result{URL: url}, errors.New("unreachable " + url)
	}
	return fetcher.Result{URL: url, Content: content}, nil
}

func (f *fakeFetcher) FetchFilterList(ctx context.Context, url string) (fetcher.Result, error) {
	f.listCalls.Add(1)
	return f.FetchText(ctx, url)
}

func (f *fakeFetcher) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

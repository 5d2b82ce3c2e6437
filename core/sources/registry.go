// ABOUTME: Source registry records where each asset is fetched from and how often
// ABOUTME: Merges partial records, reconciles against manifests and persists in order

package sources

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"filter-assets/core/domain"
	"filter-assets/core/errors"
	"filter-assets/core/fetcher"
	"filter-assets/core/interfaces"
	"filter-assets/core/observer"
	"filter-assets/core/persist"
	utiltime "filter-assets/pkg/utils/time"
)

// StorageKey holds the registry snapshot
const StorageKey = "assetSourceRegistry"

// CacheRemover purges cached content of unregistered assets
type CacheRemover interface {
	Remove(ctx context.Context, m domain.Matcher) error
}

// ManifestFetcher retrieves the bootstrap manifest
type ManifestFetcher interface {
	FetchText(ctx context.Context, url string) (fetcher.Result, error)
}

// Item is one registry record in iteration order
type Item struct {
	Key   string
	Entry domain.SourceEntry
}

// Config holds the collaborators of a Registry
type Config struct {
	Store   interfaces.Store
	Cache   CacheRemover
	Fetcher ManifestFetcher
	Bus     *observer.Bus
	Logger  interfaces.Logger
	Clock   utiltime.Clock

	// BootstrapLocation is fetched when no snapshot is persisted
	BootstrapLocation string

	// SaveDelay coalesces snapshot writes
	SaveDelay time.Duration
}

// Registry is the asset source registry
type Registry struct {
	store     interfaces.Store
	cache     CacheRemover
	fetcher   ManifestFetcher
	bus       *observer.Bus
	logger    interfaces.Logger
	clock     utiltime.Clock
	bootstrap string

	gate  persist.LoadGate
	saver *persist.Debouncer

	mu      sync.RWMutex
	keys    []string
	entries map[string]*domain.SourceEntry
}

// New creates a registry; nothing is loaded until first use
func New(cfg Config) *Registry {
	if cfg.Bus == nil {
		cfg.Bus = observer.NewBus()
	}
	if cfg.Clock == nil {
		cfg.Clock = utiltime.System
	}
	r := &Registry{
		store:     cfg.Store,
		cache:     cfg.Cache,
		fetcher:   cfg.Fetcher,
		bus:       cfg.Bus,
		logger:    interfaces.LoggerOrNop(cfg.Logger),
		clock:     cfg.Clock,
		bootstrap: cfg.BootstrapLocation,
		entries:   make(map[string]*domain.SourceEntry),
	}
	r.saver = persist.NewDebouncer(cfg.SaveDelay, r.save)
	return r
}

// Ready waits for the registry to be loaded
func (r *Registry) Ready(ctx context.Context) error {
	return r.gate.Wait(ctx, r.load)
}

func (r *Registry) load(ctx context.Context) {
	if r.loadSnapshot(ctx) {
		return
	}
	if r.fetcher == nil || r.bootstrap == "" {
		return
	}

	res, err := r.fetcher.FetchText(ctx, r.bootstrap)
	if err != nil {
		r.logger.Error("Failed to fetch bootstrap manifest", map[string]interface{}{
			"location": r.bootstrap,
			"error":    err.Error(),
		})
		return
	}
	if err := r.reconcile(ctx, []byte(res.Content), true); err != nil {
		r.logger.Error("Failed to apply bootstrap manifest", map[string]interface{}{
			"location": r.bootstrap,
			"error":    err.Error(),
		})
		return
	}
	r.logger.Info("Source registry bootstrapped", map[string]interface{}{
		"location": r.bootstrap,
		"sources":  r.count(),
	})
}

// loadSnapshot restores the persisted registry, reporting whether one was found
func (r *Registry) loadSnapshot(ctx context.Context) bool {
	bin, err := r.store.Get(ctx, []string{StorageKey})
	if err != nil {
		r.logger.Error("Failed to load source registry", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	data, ok := bin[StorageKey]
	if !ok || len(data) == 0 {
		return false
	}

	keys, raw, err := persist.DecodeObject(data)
	if err != nil {
		r.logger.Warn("Discarding undecodable source registry", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		entry := domain.NewSourceEntry()
		if err := json.Unmarshal(raw[key], entry); err != nil {
			continue
		}
		if entry.ContentURLs == nil {
			entry.ContentURLs = []string{}
		}
		r.keys = append(r.keys, key)
		r.entries[key] = entry
	}
	return true
}

// Register merges patch into the record of key, creating it if needed
func (r *Registry) Register(ctx context.Context, key string, patch domain.SourcePatch) error {
	if err := r.Ready(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.upsertLocked(key, patch)
	r.mu.Unlock()

	r.saver.Schedule()
	return nil
}

// Unregister purges the cached content of key, then deletes its record
func (r *Registry) Unregister(ctx context.Context, key string) error {
	if err := r.Ready(ctx); err != nil {
		return err
	}

	r.purge(ctx, []string{key})

	r.mu.Lock()
	r.deleteLocked(key)
	r.mu.Unlock()

	r.saver.Schedule()
	return nil
}

// Reconcile brings the registry in line with a manifest. Records missing
// from the manifest are unregistered unless user-submitted; every manifest
// record is upserted. A malformed manifest leaves the registry untouched.
func (r *Registry) Reconcile(ctx context.Context, manifest []byte, silent bool) error {
	if err := r.Ready(ctx); err != nil {
		return err
	}
	return r.reconcile(ctx, manifest, silent)
}

func (r *Registry) reconcile(ctx context.Context, manifest []byte, silent bool) error {
	keys, raw, err := persist.DecodeObject(manifest)
	if err != nil {
		return &errors.ManifestParseError{Err: err}
	}
	patches := make(map[string]domain.SourcePatch, len(keys))
	for _, key := range keys {
		var patch domain.SourcePatch
		if err := json.Unmarshal(raw[key], &patch); err != nil {
			return &errors.ManifestParseError{Err: errors.WrapError(err, key)}
		}
		patches[key] = patch
	}

	r.mu.Lock()
	var stale []string
	for _, key := range r.keys {
		if _, listed := patches[key]; !listed && r.entries[key].Submitter == "" {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		r.deleteLocked(key)
	}
	var added []domain.SourceAdded
	for _, key := range keys {
		isNew := r.upsertLocked(key, patches[key])
		if isNew {
			added = append(added, domain.SourceAdded{Key: key, Entry: r.entries[key].Clone()})
		}
	}
	r.mu.Unlock()

	r.purge(ctx, stale)
	r.saver.Flush()

	if !silent {
		for _, payload := range added {
			r.bus.Notify(domain.TopicSourceAdded, payload)
		}
	}
	if len(stale) > 0 || len(added) > 0 {
		r.logger.Info("Source registry reconciled", map[string]interface{}{
			"added":   len(added),
			"removed": len(stale),
		})
	}
	return nil
}

// Entry returns a copy of the record of key
func (r *Registry) Entry(ctx context.Context, key string) (domain.SourceEntry, bool, error) {
	if err := r.Ready(ctx); err != nil {
		return domain.SourceEntry{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	if !ok {
		return domain.SourceEntry{}, false, nil
	}
	return entry.Clone(), true, nil
}

// Entries returns copies of every record in iteration order
func (r *Registry) Entries(ctx context.Context) ([]Item, error) {
	if err := r.Ready(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Item, 0, len(r.keys))
	for _, key := range r.keys {
		out = append(out, Item{Key: key, Entry: r.entries[key].Clone()})
	}
	return out, nil
}

// Flush writes the snapshot now if the registry is loaded
func (r *Registry) Flush() {
	if r.gate.Ready() {
		r.saver.Flush()
	}
}

// Close saves a pending snapshot
func (r *Registry) Close() {
	r.saver.FlushPending()
}

// upsertLocked merges patch into key's record, reporting whether it was created
func (r *Registry) upsertLocked(key string, patch domain.SourcePatch) bool {
	entry, ok := r.entries[key]
	if !ok {
		entry = domain.NewSourceEntry()
		r.entries[key] = entry
		r.keys = append(r.keys, key)
	}
	entry.Apply(patch, r.clock.NowMillis())
	return !ok
}

func (r *Registry) deleteLocked(key string) {
	if _, ok := r.entries[key]; !ok {
		return
	}
	delete(r.entries, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

func (r *Registry) purge(ctx context.Context, keys []string) {
	if r.cache == nil || len(keys) == 0 {
		return
	}
	if err := r.cache.Remove(ctx, domain.Keys(keys...)); err != nil {
		r.logger.Warn("Failed to purge cached content", map[string]interface{}{
			"assets": keys,
			"error":  err.Error(),
		})
	}
}

func (r *Registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

func (r *Registry) save() {
	r.mu.RLock()
	snapshot, err := persist.EncodeObject(r.keys, r.entries)
	r.mu.RUnlock()
	if err != nil {
		r.logger.Error("Failed to encode source registry", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := r.store.Set(context.Background(), map[string][]byte{StorageKey: snapshot}); err != nil {
		r.logger.Error("Failed to save source registry", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

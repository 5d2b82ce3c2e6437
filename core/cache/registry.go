// ABOUTME: Cache registry tracks which assets have a local snapshot and how fresh it is
// ABOUTME: Stores asset bodies under cache/<key> and the registry itself as one snapshot

package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"filter-assets/core/domain"
	"filter-assets/core/errors"
	"filter-assets/core/interfaces"
	"filter-assets/core/observer"
	"filter-assets/core/persist"
	utiltime "filter-assets/pkg/utils/time"
)

const (
	// StorageKey holds the registry snapshot
	StorageKey = "assetCacheRegistry"

	// ContentPrefix prefixes the storage key of every asset body
	ContentPrefix = "cache/"
)

// ContentKey returns the storage key of an asset body
func ContentKey(assetKey string) string {
	return ContentPrefix + assetKey
}

// Config holds the collaborators of a Registry
type Config struct {
	Store  interfaces.Store
	Bus    *observer.Bus
	Logger interfaces.Logger
	Clock  utiltime.Clock

	// SaveDelay coalesces snapshot writes
	SaveDelay time.Duration

	// Codec creates the optional content codec
	Codec interfaces.CodecFactory

	// Detect recognises encoded blobs when no codec can be acquired
	Detect interfaces.EncodingDetector

	// Compress reports whether new writes should be encoded
	Compress func() bool

	// CompressionThreshold is the minimum content length for encoding
	CompressionThreshold int

	// CodecIdle releases an unused codec after this long
	CodecIdle time.Duration
}

// Registry is the asset cache registry
type Registry struct {
	store     interfaces.Store
	bus       *observer.Bus
	logger    interfaces.Logger
	clock     utiltime.Clock
	compress  func() bool
	threshold int
	codec     *codecHolder
	detect    interfaces.EncodingDetector
	created   int64

	gate  persist.LoadGate
	saver *persist.Debouncer

	mu      sync.RWMutex
	keys    []string
	entries map[string]*domain.CacheEntry
}

// New creates a registry; nothing is loaded until first use
func New(cfg Config) *Registry {
	if cfg.Bus == nil {
		cfg.Bus = observer.NewBus()
	}
	if cfg.Clock == nil {
		cfg.Clock = utiltime.System
	}
	if cfg.Compress == nil {
		cfg.Compress = func() bool { return false }
	}
	if cfg.CodecIdle <= 0 {
		cfg.CodecIdle = time.Minute
	}
	logger := interfaces.LoggerOrNop(cfg.Logger)

	r := &Registry{
		store:     cfg.Store,
		bus:       cfg.Bus,
		logger:    logger,
		clock:     cfg.Clock,
		compress:  cfg.Compress,
		threshold: cfg.CompressionThreshold,
		codec:     newCodecHolder(cfg.Codec, cfg.CodecIdle, logger),
		detect:    cfg.Detect,
		created:   cfg.Clock.NowMillis(),
		entries:   make(map[string]*domain.CacheEntry),
	}
	r.saver = persist.NewDebouncer(cfg.SaveDelay, r.save)
	return r
}

// StartTime returns the epoch ms at which the registry was created
func (r *Registry) StartTime() int64 {
	return r.created
}

// Ready waits for the registry to be loaded from the store
func (r *Registry) Ready(ctx context.Context) error {
	return r.gate.Wait(ctx, r.load)
}

func (r *Registry) load(ctx context.Context) {
	bin, err := r.store.Get(ctx, []string{StorageKey})
	if err != nil {
		r.logger.Error("Failed to load cache registry", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	data, ok := bin[StorageKey]
	if !ok || len(data) == 0 {
		return
	}

	keys, raw, err := persist.DecodeObject(data)
	if err != nil {
		r.logger.Warn("Discarding undecodable cache registry", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		var entry domain.CacheEntry
		if err := json.Unmarshal(raw[key], &entry); err != nil {
			continue
		}
		r.keys = append(r.keys, key)
		r.entries[key] = &entry
	}
	r.logger.Debug("Cache registry loaded", map[string]interface{}{
		"entries": len(r.keys),
	})
}

// Entry returns a copy of the cache entry of key
func (r *Registry) Entry(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	if err := r.Ready(ctx); err != nil {
		return domain.CacheEntry{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	if !ok {
		return domain.CacheEntry{}, false, nil
	}
	return *entry, true, nil
}

// Entries returns a copy of every cache entry
func (r *Registry) Entries(ctx context.Context) (map[string]domain.CacheEntry, error) {
	if err := r.Ready(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.CacheEntry, len(r.entries))
	for key, entry := range r.entries {
		out[key] = *entry
	}
	return out, nil
}

// Read returns the cached content of key and stamps its read time
func (r *Registry) Read(ctx context.Context, key string) (string, error) {
	if err := r.Ready(ctx); err != nil {
		return "", err
	}
	notFound := &errors.NotFoundError{Resource: "cached asset", ID: key}

	r.mu.RLock()
	_, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return "", notFound
	}

	bin, err := r.store.Get(ctx, []string{ContentKey(key)})
	if err != nil {
		r.logger.Error("Failed to read cached asset", map[string]interface{}{
			"asset": key,
			"error": err.Error(),
		})
		return "", notFound
	}
	blob := bin[ContentKey(key)]
	if len(blob) == 0 {
		return "", notFound
	}

	content, ok := r.decode(key, blob)
	if !ok || content == "" {
		return "", notFound
	}

	r.mu.Lock()
	if entry, ok := r.entries[key]; ok {
		entry.ReadTime = r.clock.NowMillis()
	}
	r.mu.Unlock()
	r.saver.Schedule()

	return content, nil
}

// Write stores content for key. Empty content removes the asset instead.
func (r *Registry) Write(ctx context.Context, key, content, sourceURL string) error {
	if content == "" {
		return r.Remove(ctx, domain.Key(key))
	}
	if err := r.Ready(ctx); err != nil {
		return err
	}

	now := r.clock.NowMillis()
	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		entry = &domain.CacheEntry{}
		r.entries[key] = entry
		r.keys = append(r.keys, key)
	}
	entry.WriteTime = now
	entry.ReadTime = now
	if sourceURL != "" {
		entry.RemoteURL = sourceURL
	}
	snapshot, err := r.snapshotLocked()
	r.mu.Unlock()

	items := map[string][]byte{ContentKey(key): r.encode(content)}
	if err == nil {
		items[StorageKey] = snapshot
	}
	if err := r.store.Set(ctx, items); err != nil {
		r.logger.Error("Failed to store cached asset", map[string]interface{}{
			"asset": key,
			"error": err.Error(),
		})
	}

	r.bus.Notify(domain.TopicAssetUpdated, domain.AssetUpdated{Key: key, Content: content})
	return nil
}

// Remove deletes every matching asset from the cache
func (r *Registry) Remove(ctx context.Context, m domain.Matcher) error {
	if err := r.Ready(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	var removed []string
	kept := r.keys[:0]
	for _, key := range r.keys {
		if domain.Matches(m, key) {
			removed = append(removed, key)
			delete(r.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	clear(r.keys[len(kept):])
	r.keys = kept
	r.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}

	contentKeys := make([]string, len(removed))
	for i, key := range removed {
		contentKeys[i] = ContentKey(key)
	}
	if err := r.store.Remove(ctx, contentKeys); err != nil {
		r.logger.Error("Failed to remove cached assets", map[string]interface{}{
			"assets": removed,
			"error":  err.Error(),
		})
	}
	r.saver.Flush()

	for _, key := range removed {
		r.bus.Notify(domain.TopicAssetUpdated, domain.AssetUpdated{Key: key})
	}
	return nil
}

// MarkDirty zeroes the write time of matching entries not selected by
// exclude, making them candidates for the next update cycle
func (r *Registry) MarkDirty(ctx context.Context, m, exclude domain.Matcher) error {
	if err := r.Ready(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	changed := false
	for _, key := range r.keys {
		entry := r.entries[key]
		if !domain.Matches(m, key) || domain.Matches(exclude, key) || entry.WriteTime == 0 {
			continue
		}
		entry.WriteTime = 0
		changed = true
	}
	r.mu.Unlock()

	if changed {
		r.saver.Flush()
	}
	return nil
}

// Flush writes the snapshot now if the registry is loaded
func (r *Registry) Flush() {
	if r.gate.Ready() {
		r.saver.Flush()
	}
}

// Close saves a pending snapshot and releases the codec
func (r *Registry) Close() {
	r.saver.FlushPending()
	r.codec.close()
}

func (r *Registry) snapshotLocked() ([]byte, error) {
	return persist.EncodeObject(r.keys, r.entries)
}

func (r *Registry) save() {
	r.mu.RLock()
	snapshot, err := r.snapshotLocked()
	r.mu.RUnlock()
	if err != nil {
		r.logger.Error("Failed to encode cache registry", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := r.store.Set(context.Background(), map[string][]byte{StorageKey: snapshot}); err != nil {
		r.logger.Error("Failed to save cache registry", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// encode compresses large content when compression is on; any codec failure
// stores the raw value
func (r *Registry) encode(content string) []byte {
	raw := []byte(content)
	if !r.compress() || len(content) < r.threshold {
		return raw
	}
	codec, ok := r.codec.acquire()
	if !ok {
		return raw
	}
	defer r.codec.release()

	encoded, err := codec.Encode(raw)
	if err != nil {
		r.logger.Warn("Failed to encode asset, storing raw value", map[string]interface{}{
			"error": err.Error(),
		})
		return raw
	}
	return encoded
}

// decode reverses encode. ok is false when blob is encoded but could not
// be decoded, including when no codec is available to decode it.
func (r *Registry) decode(key string, blob []byte) (string, bool) {
	codec, ok := r.codec.acquire()
	if !ok {
		if r.detect != nil && r.detect(blob) {
			r.logger.Warn("Cached asset is encoded but no codec is available", map[string]interface{}{
				"asset": key,
			})
			return "", false
		}
		return string(blob), true
	}
	defer r.codec.release()

	if !codec.IsEncoded(blob) {
		return string(blob), true
	}
	decoded, err := codec.Decode(blob)
	if err != nil {
		r.logger.Warn("Failed to decode cached asset", map[string]interface{}{
			"asset": key,
			"error": err.Error(),
		})
		return "", false
	}
	return string(decoded), true
}

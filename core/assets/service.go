// ABOUTME: Asset service owns the registries, fetchers and updater behind one API
// ABOUTME: Reads fall back from the local cache to the asset's source locations

package assets

import (
	"context"
	"strings"
	"time"

	"filter-assets/core/assembler"
	"filter-assets/core/cache"
	"filter-assets/core/config"
	"filter-assets/core/domain"
	"filter-assets/core/errors"
	"filter-assets/core/fetcher"
	"filter-assets/core/interfaces"
	"filter-assets/core/observer"
	"filter-assets/core/sources"
	"filter-assets/core/updater"
	"filter-assets/pkg/featureflags"
	utiltime "filter-assets/pkg/utils/time"
)

// GetOptions tunes a single Get
type GetOptions struct {
	// DontCache skips writing remotely fetched content to the cache
	DontCache bool
}

// Service is the asset registry manager
type Service struct {
	cfg       config.AssetConfig
	logger    interfaces.Logger
	flags     featureflags.Manager
	clock     utiltime.Clock
	bus       *observer.Bus
	userStore interfaces.Store

	fetcher   *fetcher.Fetcher
	assembler *assembler.Assembler
	sources   *sources.Registry
	cache     *cache.Registry
	updater   *updater.Scheduler
}

// NewService wires an asset service from its dependencies
func NewService(deps interfaces.Dependencies, opts ...config.AssetOption) (*Service, error) {
	if deps.Store == nil {
		return nil, &errors.ValidationError{Field: "Store", Message: "a persistent store is required"}
	}
	cfg := config.NewAssetConfig(opts...)

	s := &Service{
		cfg:       cfg,
		logger:    interfaces.LoggerOrNop(deps.Logger),
		flags:     deps.Flags,
		clock:     utiltime.System,
		bus:       observer.NewBus(),
		userStore: deps.UserStore,
	}
	if s.flags == nil {
		s.flags = featureflags.NewStaticManager(nil)
	}
	if deps.Clock != nil {
		s.clock = deps.Clock
	}
	if s.userStore == nil {
		s.userStore = deps.Store
	}

	s.fetcher = fetcher.New(deps.HTTPClient, deps.LocalAssets, s.logger,
		fetcher.WithTimeout(cfg.FetchTimeout),
		fetcher.WithClock(s.clock),
	)
	s.assembler = assembler.New(s.fetcher, s.logger)
	s.cache = cache.New(cache.Config{
		Store:                deps.Store,
		Bus:                  s.bus,
		Logger:               s.logger,
		Clock:                s.clock,
		SaveDelay:            cfg.SaveDelay,
		Codec:                deps.Codec,
		Detect:               deps.CodecDetector,
		Compress:             s.compressionEnabled,
		CompressionThreshold: cfg.CompressionThreshold,
		CodecIdle:            cfg.CodecIdle,
	})
	s.sources = sources.New(sources.Config{
		Store:             deps.Store,
		Cache:             s.cache,
		Fetcher:           s.fetcher,
		Bus:               s.bus,
		Logger:            s.logger,
		Clock:             s.clock,
		BootstrapLocation: cfg.BootstrapLocation,
		SaveDelay:         cfg.SaveDelay,
	})
	s.updater = updater.New(updater.Config{
		Sources:       s.sources,
		Cache:         s.cache,
		Text:          s.fetcher,
		Lists:         s.assembler,
		Bus:           s.bus,
		Logger:        s.logger,
		Clock:         s.clock,
		Delay:         cfg.UpdateDelay,
		ManifestKey:   cfg.ManifestKey,
		ExemptKeys:    cfg.ExemptKeys,
		HoldResources: s.holdResources,
	})
	return s, nil
}

// Initialize loads both registries, bootstrapping sources on a cold start
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.sources.Ready(ctx); err != nil {
		return errors.WrapError(err, "load source registry")
	}
	if err := s.cache.Ready(ctx); err != nil {
		return errors.WrapError(err, "load cache registry")
	}
	return nil
}

// Shutdown stops the updater and writes pending registry state
func (s *Service) Shutdown(ctx context.Context) error {
	s.updater.Stop()
	s.sources.Close()
	s.cache.Close()
	s.logger.Info("Asset service stopped", nil)
	return nil
}

// Get returns the content of key from the cache, or from its source
// locations when not cached. Failures are reported in the result.
func (s *Service) Get(ctx context.Context, key string, opts GetOptions) domain.AssetResult {
	if s.isUserAsset(key) {
		return s.getUserAsset(ctx, key)
	}

	content, err := s.cache.Read(ctx, key)
	if err == nil {
		return domain.AssetResult{Key: key, Content: content}
	}
	if ctx.Err() != nil {
		return failed(key, ctx.Err())
	}

	entry, ok, err := s.sources.Entry(ctx, key)
	if err != nil {
		return failed(key, err)
	}
	if !ok {
		return notFound(key)
	}

	for _, url := range entry.ContentURLs {
		isRemote := domain.IsRemoteURL(url)
		if isRemote && entry.HasLocalURL {
			continue
		}

		res, err := s.fetch(ctx, entry.Kind(), url)
		if err != nil {
			s.logger.Debug("Asset location failed", map[string]interface{}{
				"asset": key,
				"url":   url,
				"error": err.Error(),
			})
			continue
		}

		if isRemote && !opts.DontCache {
			if err := s.cache.Write(ctx, key, res.Content, url); err != nil {
				s.logger.Warn("Failed to cache asset", map[string]interface{}{
					"asset": key,
					"error": err.Error(),
				})
			}
		}
		if entry.LastError != nil {
			s.clearLastError(ctx, key)
		}
		return domain.AssetResult{Key: key, Content: res.Content, URL: url}
	}

	return notFound(key)
}

// Put stores content for key; empty content removes it
func (s *Service) Put(ctx context.Context, key, content string) error {
	if s.isUserAsset(key) {
		return s.putUserAsset(ctx, key, content)
	}
	return s.cache.Write(ctx, key, content, "")
}

// Metadata describes every registered asset together with its cache state
func (s *Service) Metadata(ctx context.Context) (map[string]domain.AssetMetadata, error) {
	items, err := s.sources.Entries(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := s.cache.Entries(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.NowMillis()
	out := make(map[string]domain.AssetMetadata, len(items))
	for _, item := range items {
		meta := domain.AssetMetadata{SourceEntry: item.Entry}
		if entry, ok := cached[item.Key]; ok {
			meta.Cached = true
			meta.WriteTime = entry.WriteTime
			meta.RemoteURL = entry.RemoteURL
			meta.Obsolete = entry.Obsolete(item.Entry.UpdateAfter, now)
		} else if len(item.Entry.ContentURLs) > 0 {
			meta.Obsolete = true
		}
		out[item.Key] = meta
	}
	return out, nil
}

// Remove deletes matching assets from the cache
func (s *Service) Remove(ctx context.Context, m domain.Matcher) error {
	return s.cache.Remove(ctx, m)
}

// RemoveAll deletes every cached asset
func (s *Service) RemoveAll(ctx context.Context) error {
	return s.cache.Remove(ctx, domain.All())
}

// MarkDirty flags matching cached assets, except excluded ones, for refresh
func (s *Service) MarkDirty(ctx context.Context, m, exclude domain.Matcher) error {
	return s.cache.MarkDirty(ctx, m, exclude)
}

// UpdateStart begins an update cycle, or shortens the delay of a running one
func (s *Service) UpdateStart(delay ...time.Duration) {
	s.updater.Start(delay...)
}

// UpdateStop ends the running update cycle
func (s *Service) UpdateStop() {
	s.updater.Stop()
}

// UpdateStatus reports whether an update cycle is running
func (s *Service) UpdateStatus() updater.Status {
	return s.updater.Status()
}

// RunCycle starts an update cycle and waits for it to finish
func (s *Service) RunCycle(ctx context.Context, delay time.Duration) (domain.CycleFinished, error) {
	done := make(chan domain.CycleFinished, 1)
	watcher := &cycleWaiter{done: done}
	s.bus.Subscribe(watcher)
	defer s.bus.Unsubscribe(watcher)

	s.updater.Start(delay)

	select {
	case finished := <-done:
		return finished, nil
	case <-ctx.Done():
		return domain.CycleFinished{}, ctx.Err()
	}
}

// RegisterSource merges patch into the source record of key
func (s *Service) RegisterSource(ctx context.Context, key string, patch domain.SourcePatch) error {
	return s.sources.Register(ctx, key, patch)
}

// UnregisterSource removes key's source record and cached content
func (s *Service) UnregisterSource(ctx context.Context, key string) error {
	return s.sources.Unregister(ctx, key)
}

// Subscribe adds an observer of registry and update notifications
func (s *Service) Subscribe(o observer.Observer) {
	s.bus.Subscribe(o)
}

// Unsubscribe removes an observer
func (s *Service) Unsubscribe(o observer.Observer) {
	s.bus.Unsubscribe(o)
}

// FetchText retrieves a document without touching the registries
func (s *Service) FetchText(ctx context.Context, url string) (fetcher.Result, error) {
	return s.fetcher.FetchText(ctx, url)
}

// FetchFilterList retrieves a filter list with its includes expanded
func (s *Service) FetchFilterList(ctx context.Context, url string) (fetcher.Result, error) {
	return s.assembler.FetchFilterList(ctx, url)
}

func (s *Service) fetch(ctx context.Context, kind domain.ContentKind, url string) (fetcher.Result, error) {
	if kind == domain.ContentFilterList {
		return s.assembler.FetchFilterList(ctx, url)
	}
	return s.fetcher.FetchText(ctx, url)
}

func (s *Service) clearLastError(ctx context.Context, key string) {
	if err := s.sources.Register(ctx, key, domain.SourcePatch{
		LastError: domain.Clear[*domain.ErrorRecord](),
	}); err != nil {
		s.logger.Warn("Failed to clear source error", map[string]interface{}{
			"asset": key,
			"error": err.Error(),
		})
	}
}

func (s *Service) compressionEnabled() bool {
	return s.cfg.Compression || s.flags.IsEnabled(context.Background(), featureflags.CacheStorageCompression)
}

func (s *Service) holdResources() bool {
	return s.flags.IsEnabled(context.Background(), featureflags.NoRemoteResources)
}

func (s *Service) isUserAsset(key string) bool {
	return s.cfg.UserAssetPrefix != "" && strings.HasPrefix(key, s.cfg.UserAssetPrefix)
}

func (s *Service) getUserAsset(ctx context.Context, key string) domain.AssetResult {
	bin, err := s.userStore.Get(ctx, []string{key})
	if err != nil {
		s.logger.Error("Failed to read user asset", map[string]interface{}{
			"asset": key,
			"error": err.Error(),
		})
		return notFound(key)
	}
	content := string(bin[key])
	if content == "" {
		return notFound(key)
	}
	return domain.AssetResult{Key: key, Content: content}
}

func (s *Service) putUserAsset(ctx context.Context, key, content string) error {
	if content == "" {
		return s.userStore.Remove(ctx, []string{key})
	}
	return s.userStore.Set(ctx, map[string][]byte{key: []byte(content)})
}

func notFound(key string) domain.AssetResult {
	return failed(key, &errors.NotFoundError{Resource: "asset", ID: key})
}

func failed(key string, err error) domain.AssetResult {
	return domain.AssetResult{Key: key, Code: errors.Code(err), Err: err}
}

// cycleWaiter forwards the end of an update cycle
type cycleWaiter struct {
	done chan domain.CycleFinished
}

func (w *cycleWaiter) Observe(topic domain.Topic, payload any) any {
	if topic != domain.TopicCycleFinished {
		return nil
	}
	select {
	case w.done <- payload.(domain.CycleFinished):
	default:
	}
	return nil
}

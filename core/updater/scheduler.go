// ABOUTME: Update scheduler refreshes stale assets one at a time in a throttled cycle
// ABOUTME: Observers can veto candidates; the manifest asset reconciles the source registry

package updater

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"filter-assets/core/domain"
	"filter-assets/core/errors"
	"filter-assets/core/fetcher"
	"filter-assets/core/interfaces"
	"filter-assets/core/observer"
	"filter-assets/core/sources"
	utiltime "filter-assets/pkg/utils/time"
)

// DefaultDelay separates two fetches of a cycle
const DefaultDelay = 120 * time.Second

// ResourcesKey is the resource bundle held back by the remote-resources policy
const ResourcesKey = "ublock-resources"

// Status of the scheduler
type Status int

const (
	Idle Status = iota
	Updating
)

func (s Status) String() string {
	if s == Updating {
		return "updating"
	}
	return "idle"
}

// SourceRegistry is the view of the source registry used by the scheduler
type SourceRegistry interface {
	Entries(ctx context.Context) ([]sources.Item, error)
	Register(ctx context.Context, key string, patch domain.SourcePatch) error
	Reconcile(ctx context.Context, manifest []byte, silent bool) error
}

// CacheRegistry is the view of the cache registry used by the scheduler
type CacheRegistry interface {
	Entry(ctx context.Context, key string) (domain.CacheEntry, bool, error)
	Write(ctx context.Context, key, content, sourceURL string) error
	Remove(ctx context.Context, m domain.Matcher) error
}

// TextFetcher retrieves plain documents
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (fetcher.Result, error)
}

// ListFetcher retrieves filter lists with their includes expanded
type ListFetcher interface {
	FetchFilterList(ctx context.Context, url string) (fetcher.Result, error)
}

// Config holds the collaborators of a Scheduler
type Config struct {
	Sources SourceRegistry
	Cache   CacheRegistry
	Text    TextFetcher
	Lists   ListFetcher
	Bus     *observer.Bus
	Logger  interfaces.Logger
	Clock   utiltime.Clock

	// Delay is the default pause between two fetches
	Delay time.Duration

	// ManifestKey names the asset whose content is the source manifest
	ManifestKey string

	// ExemptKeys are never refreshed
	ExemptKeys []string

	// HoldResources reports whether the resource bundle is exempt as well
	HoldResources func() bool
}

// Scheduler runs update cycles
type Scheduler struct {
	sources       SourceRegistry
	cache         CacheRegistry
	text          TextFetcher
	lists         ListFetcher
	bus           *observer.Bus
	logger        interfaces.Logger
	clock         utiltime.Clock
	defaultDelay  time.Duration
	manifestKey   string
	exempt        map[string]struct{}
	holdResources func() bool

	mu         sync.Mutex
	status     Status
	generation uint64
	cycleID    string
	cycleStart int64
	attempted  map[string]struct{}
	updated    []string
	delay      time.Duration
	timer      *time.Timer
	inFlight   bool
	deferred   bool
}

// New creates an idle scheduler
func New(cfg Config) *Scheduler {
	if cfg.Bus == nil {
		cfg.Bus = observer.NewBus()
	}
	if cfg.Clock == nil {
		cfg.Clock = utiltime.System
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.HoldResources == nil {
		cfg.HoldResources = func() bool { return false }
	}
	exempt := make(map[string]struct{}, len(cfg.ExemptKeys))
	for _, key := range cfg.ExemptKeys {
		exempt[key] = struct{}{}
	}
	return &Scheduler{
		sources:       cfg.Sources,
		cache:         cfg.Cache,
		text:          cfg.Text,
		lists:         cfg.Lists,
		bus:           cfg.Bus,
		logger:        interfaces.LoggerOrNop(cfg.Logger),
		clock:         cfg.Clock,
		defaultDelay:  cfg.Delay,
		manifestKey:   cfg.ManifestKey,
		exempt:        exempt,
		holdResources: cfg.HoldResources,
		delay:         cfg.Delay,
	}
}

// Status returns the current scheduler status
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CycleID returns the ID of the running cycle, or "" when idle
func (s *Scheduler) CycleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != Updating {
		return ""
	}
	return s.cycleID
}

// Start begins an update cycle. The optional delay replaces the default
// pause between fetches. When a cycle is already running the pause can
// only shrink, and a pending fetch is rescheduled accordingly.
func (s *Scheduler) Start(delay ...time.Duration) {
	requested := s.defaultDelay
	if len(delay) > 0 && delay[0] >= 0 {
		requested = delay[0]
	}

	s.mu.Lock()
	if s.status == Updating {
		if requested < s.delay {
			s.delay = requested
			if s.timer != nil && s.timer.Stop() {
				gen := s.generation
				s.timer = time.AfterFunc(s.delay, func() { s.attempt(gen) })
			}
		}
		s.mu.Unlock()
		return
	}

	s.status = Updating
	s.generation++
	gen := s.generation
	s.cycleID = uuid.NewString()
	s.cycleStart = s.clock.NowMillis()
	s.attempted = make(map[string]struct{})
	s.updated = nil
	s.delay = requested
	cycleID := s.cycleID
	s.mu.Unlock()

	s.logger.Info("Update cycle started", map[string]interface{}{
		"cycle": cycleID,
		"delay": requested.String(),
	})
	s.bus.Notify(domain.TopicCycleStarted, domain.CycleStarted{CycleID: cycleID})

	go s.attempt(gen)
}

// Stop cancels the pending fetch and finishes the running cycle. A fetch
// already in flight completes but schedules nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.status != Updating {
		s.mu.Unlock()
		return
	}
	finished := s.finishLocked()
	s.mu.Unlock()

	s.announce(finished)
}

// attempt refreshes the next candidate of cycle gen
func (s *Scheduler) attempt(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.status != Updating {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		// a fetch of a stopped cycle is still running; it starts this one
		s.deferred = true
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.timer = nil
	cycleStart := s.cycleStart
	s.mu.Unlock()

	ctx := context.Background()
	if item, ok := s.nextCandidate(ctx, gen, cycleStart); ok {
		s.update(ctx, gen, item)
	}

	more := s.hasCandidate(ctx, gen)

	s.mu.Lock()
	s.inFlight = false
	if gen != s.generation || s.status != Updating {
		next, resume := s.generation, s.deferred && s.status == Updating
		s.deferred = false
		s.mu.Unlock()
		if resume {
			go s.attempt(next)
		}
		return
	}
	if more {
		s.timer = time.AfterFunc(s.delay, func() { s.attempt(gen) })
		s.mu.Unlock()
		return
	}
	finished := s.finishLocked()
	s.mu.Unlock()

	s.announce(finished)
}

// nextCandidate picks the first eligible source, firing before-update for
// each one. Vetoed sources are skipped for the rest of the cycle.
func (s *Scheduler) nextCandidate(ctx context.Context, gen uint64, cycleStart int64) (sources.Item, bool) {
	items, err := s.sources.Entries(ctx)
	if err != nil {
		return sources.Item{}, false
	}
	for _, item := range items {
		cached, isCached, ok := s.eligible(ctx, gen, item)
		if !ok {
			continue
		}
		if !s.markAttempted(gen, item.Key) {
			return sources.Item{}, false
		}

		veto := s.bus.Notify(domain.TopicBeforeUpdate, domain.BeforeUpdate{
			Key:  item.Key,
			Kind: item.Entry.Kind(),
		})
		if !observer.Truthy(veto) {
			return item, true
		}

		s.logger.Debug("Update vetoed", map[string]interface{}{"asset": item.Key})
		if isCached && cached.ReadTime < cycleStart {
			if err := s.cache.Remove(ctx, domain.Key(item.Key)); err != nil {
				s.logger.Warn("Failed to remove vetoed asset", map[string]interface{}{
					"asset": item.Key,
					"error": err.Error(),
				})
			}
		}
	}
	return sources.Item{}, false
}

// hasCandidate reports whether another source is eligible, without notifying
func (s *Scheduler) hasCandidate(ctx context.Context, gen uint64) bool {
	items, err := s.sources.Entries(ctx)
	if err != nil {
		return false
	}
	for _, item := range items {
		if _, _, ok := s.eligible(ctx, gen, item); ok {
			return true
		}
	}
	return false
}

// eligible applies the candidate rules to item, returning its cache entry
func (s *Scheduler) eligible(ctx context.Context, gen uint64, item sources.Item) (domain.CacheEntry, bool, bool) {
	if !item.Entry.HasRemoteURL || s.isExempt(item.Key) || s.wasAttempted(gen, item.Key) {
		return domain.CacheEntry{}, false, false
	}
	cached, isCached, err := s.cache.Entry(ctx, item.Key)
	if err != nil {
		return domain.CacheEntry{}, false, false
	}
	if isCached && !cached.Obsolete(item.Entry.UpdateAfter, s.clock.NowMillis()) {
		return cached, true, false
	}
	return cached, isCached, true
}

func (s *Scheduler) isExempt(key string) bool {
	if _, ok := s.exempt[key]; ok {
		return true
	}
	return key == ResourcesKey && s.holdResources()
}

func (s *Scheduler) wasAttempted(gen uint64, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return true
	}
	_, ok := s.attempted[key]
	return ok
}

// markAttempted records key for cycle gen; false if the cycle has ended
func (s *Scheduler) markAttempted(gen uint64, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.attempted[key] = struct{}{}
	return true
}

// update fetches item from its remote URLs in order until one succeeds
func (s *Scheduler) update(ctx context.Context, gen uint64, item sources.Item) {
	var lastErr error
	for _, url := range item.Entry.RemoteURLs() {
		var (
			res fetcher.Result
			err error
		)
		if item.Entry.Kind() == domain.ContentFilterList {
			res, err = s.lists.FetchFilterList(ctx, url)
		} else {
			res, err = s.text.FetchText(ctx, url)
		}
		if err != nil {
			lastErr = err
			s.recordError(ctx, item.Key, err)
			continue
		}

		if err := s.cache.Write(ctx, item.Key, res.Content, url); err != nil {
			lastErr = err
			continue
		}
		if err := s.sources.Register(ctx, item.Key, domain.SourcePatch{
			LastError: domain.Clear[*domain.ErrorRecord](),
		}); err != nil {
			s.logger.Warn("Failed to clear source error", map[string]interface{}{
				"asset": item.Key,
				"error": err.Error(),
			})
		}

		s.mu.Lock()
		if gen == s.generation {
			s.updated = append(s.updated, item.Key)
		}
		s.mu.Unlock()

		s.logger.Info("Asset updated", map[string]interface{}{
			"asset": item.Key,
			"url":   url,
			"bytes": len(res.Content),
		})

		if item.Key == s.manifestKey {
			if err := s.sources.Reconcile(ctx, []byte(res.Content), false); err != nil {
				s.logger.Error("Failed to apply updated manifest", map[string]interface{}{
					"asset": item.Key,
					"error": err.Error(),
				})
			}
		}
		return
	}

	if lastErr == nil {
		lastErr = &errors.NotFoundError{Resource: "remote URL", ID: item.Key}
	}
	s.logger.Warn("Asset update failed", map[string]interface{}{
		"asset": item.Key,
		"error": lastErr.Error(),
	})
	s.bus.Notify(domain.TopicUpdateFailed, domain.UpdateFailed{Key: item.Key, Err: lastErr})
}

func (s *Scheduler) recordError(ctx context.Context, key string, cause error) {
	record := &domain.ErrorRecord{Time: s.clock.NowMillis(), Message: cause.Error()}
	if err := s.sources.Register(ctx, key, domain.SourcePatch{
		LastError: domain.Set(record),
	}); err != nil {
		s.logger.Warn("Failed to record source error", map[string]interface{}{
			"asset": key,
			"error": err.Error(),
		})
	}
}

// finishLocked ends the running cycle and returns its completion payload
func (s *Scheduler) finishLocked() domain.CycleFinished {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.status = Idle
	s.generation++
	s.deferred = false
	s.delay = s.defaultDelay
	finished := domain.CycleFinished{
		CycleID:     s.cycleID,
		UpdatedKeys: append([]string(nil), s.updated...),
	}
	s.updated = nil
	s.attempted = nil
	return finished
}

func (s *Scheduler) announce(finished domain.CycleFinished) {
	s.logger.Info("Update cycle finished", map[string]interface{}{
		"cycle":   finished.CycleID,
		"updated": finished.UpdatedKeys,
	})
	s.bus.Notify(domain.TopicCycleFinished, finished)
}

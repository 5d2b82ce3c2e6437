// ABOUTME: Text fetcher retrieves asset documents from remote URLs or the local asset tree
// ABOUTME: Applies cache busting, an inactivity timeout and sanity checks on the body

package fetcher

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"filter-assets/core/domain"
	"filter-assets/core/errors"
	"filter-assets/core/interfaces"
	"filter-assets/pkg/utils/html"
	utiltime "filter-assets/pkg/utils/time"
)

const (
	// DefaultTimeout aborts a transfer that makes no progress for this long
	DefaultTimeout = 30 * time.Second

	// cacheBustPeriod is the width of one cache-busting bucket in milliseconds
	cacheBustPeriod = 7200000
)

// Result is a fetched document. URL is the location as requested, without
// the cache-busting parameter.
type Result struct {
	URL     string
	Content string
}

// Fetcher retrieves text documents
type Fetcher struct {
	client  interfaces.HTTPClient
	local   fs.FS
	logger  interfaces.Logger
	timeout time.Duration
	clock   utiltime.Clock
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithTimeout sets the inactivity timeout
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithClock sets the clock used for cache busting
func WithClock(c utiltime.Clock) Option {
	return func(f *Fetcher) {
		f.clock = c
	}
}

// New creates a fetcher. client serves remote URLs and local serves paths
// without a scheme; either may be nil, in which case those fetches fail.
func New(client interfaces.HTTPClient, local fs.FS, logger interfaces.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		local:   local,
		logger:  interfaces.LoggerOrNop(logger),
		timeout: DefaultTimeout,
		clock:   utiltime.System,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchText retrieves the document at url
func (f *Fetcher) FetchText(ctx context.Context, url string) (Result, error) {
	var (
		content string
		err     error
	)
	if domain.IsRemoteURL(url) {
		content, err = f.fetchRemote(ctx, url)
	} else {
		content, err = f.fetchLocal(url)
	}
	if err != nil {
		return Result{URL: url}, err
	}

	if err := checkContent(url, content); err != nil {
		f.logger.Warn("Rejected fetched content", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return Result{URL: url}, err
	}

	return Result{URL: url, Content: content}, nil
}

// CacheBust appends the two-hour bucket parameter to url
func CacheBust(url string, nowMillis int64) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_=%d", url, sep, nowMillis/cacheBustPeriod)
}

func (f *Fetcher) fetchRemote(ctx context.Context, url string) (string, error) {
	if f.client == nil {
		return "", &errors.NetworkError{URL: url, Err: fmt.Errorf("no http client configured")}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchdog := newWatchdog(f.timeout, cancel)
	defer watchdog.stop()

	resp, err := f.client.Get(ctx, CacheBust(url, f.clock.NowMillis()))
	if err != nil {
		return "", f.transportError(url, watchdog, err)
	}
	body := resp.Body()
	defer body.Close()

	if code := resp.StatusCode(); code < 200 || code > 299 {
		f.logger.Warn("Asset fetch returned error status", map[string]interface{}{
			"url":    url,
			"status": code,
		})
		return "", &errors.NetworkError{URL: url, StatusCode: code}
	}

	data, err := io.ReadAll(&progressReader{r: body, w: watchdog})
	if err != nil {
		return "", f.transportError(url, watchdog, err)
	}
	return string(data), nil
}

func (f *Fetcher) transportError(url string, w *watchdog, err error) error {
	netErr := &errors.NetworkError{URL: url, Timeout: w.fired(), Err: err}
	f.logger.Warn("Can't connect to asset location", map[string]interface{}{
		"url":     url,
		"timeout": netErr.Timeout,
		"error":   err.Error(),
	})
	return netErr
}

func (f *Fetcher) fetchLocal(url string) (string, error) {
	name := path.Clean(strings.TrimLeft(url, "/"))
	if f.local == nil || !fs.ValidPath(name) {
		return "", &errors.NotFoundError{Resource: "local asset", ID: url}
	}

	data, err := fs.ReadFile(f.local, name)
	if err != nil {
		f.logger.Warn("Can't read local asset", map[string]interface{}{
			"path":  url,
			"error": err.Error(),
		})
		return "", &errors.NotFoundError{Resource: "local asset", ID: url}
	}
	return string(data), nil
}

// checkContent rejects empty bodies and HTML pages served in place of text
func checkContent(url, content string) error {
	if content == "" {
		return &errors.InvalidContentError{URL: url, Reason: "empty body"}
	}
	if html.LooksLikeDocument(content) {
		reason := "html document"
		if title := html.Title(content); title != "" {
			reason = fmt.Sprintf("html document %q", title)
		}
		return &errors.InvalidContentError{URL: url, Reason: reason}
	}
	return nil
}

// watchdog cancels a transfer when no progress is reported for timeout
type watchdog struct {
	mu      sync.Mutex
	timer   *time.Timer
	timeout time.Duration
	expired atomic.Bool
}

func newWatchdog(timeout time.Duration, cancel context.CancelFunc) *watchdog {
	w := &watchdog{timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() {
		w.expired.Store(true)
		cancel()
	})
	return w
}

func (w *watchdog) progress() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.expired.Load() {
		w.timer.Reset(w.timeout)
	}
}

func (w *watchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timer.Stop()
}

func (w *watchdog) fired() bool {
	return w.expired.Load()
}

// progressReader resets the watchdog whenever bytes arrive
type progressReader struct {
	r io.Reader
	w *watchdog
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.w.progress()
	}
	return n, err
}

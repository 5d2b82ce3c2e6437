// ABOUTME: List assembler expands !#include directives into one merged filter list
// ABOUTME: Sub-documents are fetched concurrently, at most once each, relative to the root

package assembler

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"filter-assets/core/domain"
	"filter-assets/core/fetcher"
	"filter-assets/core/interfaces"
)

const (
	beginMarker = "! >>>>>>>> "
	endMarker   = "! <<<<<<<< "
)

var reInclude = regexp.MustCompile(`^!#include +(\S+)`)

// TextFetcher retrieves a single document
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (fetcher.Result, error)
}

// Assembler builds filter lists out of a root document and its includes
type Assembler struct {
	fetcher TextFetcher
	logger  interfaces.Logger
}

// New creates an assembler fetching documents through f
func New(f TextFetcher, logger interfaces.Logger) *Assembler {
	return &Assembler{
		fetcher: f,
		logger:  interfaces.LoggerOrNop(logger),
	}
}

// FetchFilterList fetches rootURL and every document it includes,
// transitively, and returns the merged content. Any failed fetch fails the
// whole list.
func (a *Assembler) FetchFilterList(ctx context.Context, rootURL string) (fetcher.Result, error) {
	root, err := a.fetcher.FetchText(ctx, rootURL)
	if err != nil {
		return fetcher.Result{URL: rootURL}, err
	}

	run := &assembly{
		fetcher: a.fetcher,
		root:    rootURL,
		pending: make(map[string]struct{}),
		loaded:  map[string]string{rootURL: root.Content},
	}
	run.group, run.ctx = errgroup.WithContext(ctx)
	run.discover(rootURL, root.Content)

	if err := run.group.Wait(); err != nil {
		a.logger.Warn("Filter list assembly failed", map[string]interface{}{
			"url":   rootURL,
			"error": err.Error(),
		})
		return fetcher.Result{URL: rootURL}, err
	}

	var out []string
	emitted := map[string]bool{rootURL: true}
	run.expand(rootURL, emitted, &out)

	return fetcher.Result{
		URL:     rootURL,
		Content: strings.TrimSpace(strings.Join(out, "\n")),
	}, nil
}

// assembly is the state of one FetchFilterList call. pending and loaded are
// disjoint: a URL moves from pending to loaded when its fetch succeeds.
type assembly struct {
	fetcher TextFetcher
	root    string
	group   *errgroup.Group
	ctx     context.Context

	mu      sync.Mutex
	pending map[string]struct{}
	loaded  map[string]string
}

// discover starts a fetch for every include of content not seen before
func (r *assembly) discover(docURL, content string) {
	for _, sub := range r.includes(content) {
		r.mu.Lock()
		_, isPending := r.pending[sub]
		_, isLoaded := r.loaded[sub]
		if isPending || isLoaded {
			r.mu.Unlock()
			continue
		}
		r.pending[sub] = struct{}{}
		r.mu.Unlock()

		r.group.Go(func() error {
			res, err := r.fetcher.FetchText(r.ctx, sub)
			if err != nil {
				return err
			}
			r.mu.Lock()
			delete(r.pending, sub)
			r.loaded[sub] = res.Content
			r.mu.Unlock()

			r.discover(sub, res.Content)
			return nil
		})
	}
}

// includes lists the resolved URLs of the accepted include directives of content
func (r *assembly) includes(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if sub, ok := r.resolveDirective(line); ok {
			out = append(out, sub)
		}
	}
	return out
}

// resolveDirective returns the sub-document URL named by an include line
func (r *assembly) resolveDirective(line string) (string, bool) {
	m := reInclude.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	sub := m[1]
	if !acceptable(sub) {
		return "", false
	}
	return resolve(r.root, sub)
}

// expand appends docURL's trimmed content to out, inserting each included
// document after its directive the first time it is reached
func (r *assembly) expand(docURL string, emitted map[string]bool, out *[]string) {
	content := strings.TrimSpace(r.loaded[docURL])
	if content == "" {
		return
	}
	for _, line := range strings.Split(content, "\n") {
		*out = append(*out, line)

		sub, ok := r.resolveDirective(line)
		if !ok || emitted[sub] {
			continue
		}
		if _, ok := r.loaded[sub]; !ok {
			continue
		}
		emitted[sub] = true
		*out = append(*out, beginMarker+sub)
		r.expand(sub, emitted, out)
		*out = append(*out, endMarker+sub)
	}
}

// acceptable rejects absolute URLs, rooted paths and parent traversal
func acceptable(sub string) bool {
	if domain.IsRemoteURL(sub) || strings.HasPrefix(sub, "/") || strings.Contains(sub, "..") {
		return false
	}
	if u, err := url.Parse(sub); err == nil && u.Scheme != "" {
		return false
	}
	return true
}

// resolve locates sub relative to the directory of root
func resolve(root, sub string) (string, bool) {
	if !domain.IsRemoteURL(root) {
		return path.Join(path.Dir(root), sub), true
	}
	base, err := url.Parse(root)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(sub)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// ABOUTME: Source entry domain model describes where and how often an asset is fetched
// ABOUTME: Provides URL classification, patch merging and staleness arithmetic

package domain

import (
	"regexp"
	"slices"
)

// ContentKind classifies what an asset contains
type ContentKind string

const (
	// ContentGeneric is any plain text resource
	ContentGeneric ContentKind = "generic"

	// ContentFilterList is a filter list whose include directives are expanded
	ContentFilterList ContentKind = "filters"
)

// DefaultUpdateAfter is the refresh interval in days applied when none is set
const DefaultUpdateAfter = 5.0

// MillisPerDay converts updateAfter days into epoch milliseconds
const MillisPerDay = 86400000

var reExternalPath = regexp.MustCompile(`^[a-z-]+://`)

// IsRemoteURL reports whether u carries a scheme, i.e. must be fetched over the network
func IsRemoteURL(u string) bool {
	return reExternalPath.MatchString(u)
}

// ErrorRecord is the last fetch failure recorded against a source
type ErrorRecord struct {
	// Time is the failure time in epoch milliseconds
	Time int64 `json:"time"`

	// Message describes the failure
	Message string `json:"error"`
}

// SourceEntry describes where and how often to fetch an asset
type SourceEntry struct {
	ContentURLs  []string     `json:"contentURL"`
	CDNURLs      []string     `json:"cdnURLs,omitempty"`
	HasLocalURL  bool         `json:"hasLocalURL"`
	HasRemoteURL bool         `json:"hasRemoteURL"`
	UpdateAfter  float64      `json:"updateAfter"`
	Content      ContentKind  `json:"content,omitempty"`
	Title        string       `json:"title,omitempty"`
	Group        string       `json:"group,omitempty"`
	SupportURL   string       `json:"supportURL,omitempty"`
	Submitter    string       `json:"submitter,omitempty"`
	SubmitTime   int64        `json:"submitTime,omitempty"`
	LastError    *ErrorRecord `json:"error,omitempty"`
}

// Kind returns the content kind, defaulting to generic
func (e *SourceEntry) Kind() ContentKind {
	if e.Content == ContentFilterList {
		return ContentFilterList
	}
	return ContentGeneric
}

// RemoteURLs returns the candidate URLs that must be fetched over the network
func (e *SourceEntry) RemoteURLs() []string {
	var out []string
	for _, u := range e.ContentURLs {
		if IsRemoteURL(u) {
			out = append(out, u)
		}
	}
	return out
}

// Clone returns a deep copy of the entry
func (e SourceEntry) Clone() SourceEntry {
	e.ContentURLs = slices.Clone(e.ContentURLs)
	e.CDNURLs = slices.Clone(e.CDNURLs)
	if e.LastError != nil {
		rec := *e.LastError
		e.LastError = &rec
	}
	return e
}

// classifyURLs recomputes hasLocalURL/hasRemoteURL from the URL list
func (e *SourceEntry) classifyURLs() {
	remote := 0
	for _, u := range e.ContentURLs {
		if IsRemoteURL(u) {
			remote++
		}
	}
	e.HasLocalURL = remote != len(e.ContentURLs)
	e.HasRemoteURL = remote != 0
}

// NewSourceEntry returns an empty entry carrying the default refresh interval
func NewSourceEntry() *SourceEntry {
	return &SourceEntry{
		ContentURLs: []string{},
		UpdateAfter: DefaultUpdateAfter,
	}
}

// Apply merges a patch into the entry. Cleared fields are deleted, set fields
// overwrite, untouched fields are kept. now is used for submitTime stamping.
func (e *SourceEntry) Apply(p SourcePatch, now int64) {
	applyField(&e.ContentURLs, p.ContentURLs)
	applyField(&e.CDNURLs, p.CDNURLs)
	applyField(&e.UpdateAfter, p.UpdateAfter)
	applyField(&e.Content, p.Content)
	applyField(&e.Title, p.Title)
	applyField(&e.Group, p.Group)
	applyField(&e.SupportURL, p.SupportURL)
	applyField(&e.Submitter, p.Submitter)
	applyField(&e.LastError, p.LastError)

	if e.ContentURLs == nil {
		e.ContentURLs = []string{}
	}
	if p.ContentURLs.touched() {
		e.ContentURLs = slices.Clone(e.ContentURLs)
		e.classifyURLs()
	}
	if p.UpdateAfter.IsCleared() || e.UpdateAfter < 0 {
		e.UpdateAfter = DefaultUpdateAfter
	}
	if e.Submitter != "" {
		e.SubmitTime = now
	} else if p.Submitter.IsCleared() {
		e.SubmitTime = 0
	}
}

// Obsolete reports whether a snapshot written at writeTime is older than the
// refresh interval of updateAfter days
func Obsolete(writeTime int64, updateAfter float64, now int64) bool {
	return float64(now-writeTime) > updateAfter*MillisPerDay
}

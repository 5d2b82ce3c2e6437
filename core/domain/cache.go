// ABOUTME: Cache entry domain model tracks the last persisted snapshot of an asset
// ABOUTME: Also defines the metadata view and the structured result of an asset read

package domain

// CacheEntry records the last successful local snapshot of an asset
type CacheEntry struct {
	// WriteTime is the epoch ms of the last persisted fetch (0 = dirty)
	WriteTime int64 `json:"writeTime"`

	// ReadTime is the epoch ms of the last consumer read
	ReadTime int64 `json:"readTime"`

	// RemoteURL is the candidate URL the content was fetched from
	RemoteURL string `json:"remoteURL,omitempty"`
}

// Obsolete reports whether the snapshot is older than updateAfter days at now
func (c CacheEntry) Obsolete(updateAfter float64, now int64) bool {
	return Obsolete(c.WriteTime, updateAfter, now)
}

// AssetMetadata merges a source entry with the state of its cache entry
type AssetMetadata struct {
	SourceEntry

	Cached    bool   `json:"cached"`
	Obsolete  bool   `json:"obsolete"`
	WriteTime int64  `json:"writeTime"`
	RemoteURL string `json:"remoteURL,omitempty"`
}

// AssetResult is the outcome of reading an asset. Failures never surface as a
// bare error: Code carries the error code and Err the cause.
type AssetResult struct {
	Key     string
	Content string

	// URL is the candidate the content came from; empty for cache hits
	URL string

	// Code is empty on success, otherwise one of the errors.Code* values
	Code string
	Err  error
}

// OK reports whether the read produced content
func (r AssetResult) OK() bool {
	return r.Code == "" && r.Content != ""
}

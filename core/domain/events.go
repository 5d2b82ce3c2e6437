// ABOUTME: Notification topics and payloads emitted on the observer bus
// ABOUTME: Payload types follow the lifecycle of registries and update cycles

package domain

// Topic names a notification
type Topic string

const (
	TopicSourceAdded   Topic = "source-added"
	TopicAssetUpdated  Topic = "asset-updated"
	TopicCycleStarted  Topic = "cycle-started"
	TopicBeforeUpdate  Topic = "before-update"
	TopicUpdateFailed  Topic = "update-failed"
	TopicCycleFinished Topic = "cycle-finished"
)

// SourceAdded is fired when a manifest reconcile introduces a new key
type SourceAdded struct {
	Key   string
	Entry SourceEntry
}

// AssetUpdated is fired after a cache write (Content set) or removal (Content empty)
type AssetUpdated struct {
	Key     string
	Content string
}

// CycleStarted is fired when an update cycle begins
type CycleStarted struct {
	CycleID string
}

// BeforeUpdate is fired before a candidate is fetched. A truthy observer
// result skips the candidate for the current cycle.
type BeforeUpdate struct {
	Key  string
	Kind ContentKind
}

// UpdateFailed is fired when no remote URL of a candidate yielded content
type UpdateFailed struct {
	Key string
	Err error
}

// CycleFinished is fired once a cycle completes or is stopped
type CycleFinished struct {
	CycleID     string
	UpdatedKeys []string
}

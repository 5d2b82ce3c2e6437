// ABOUTME: Dependencies container provides dependency injection for core services
// ABOUTME: Defines the contract for dependencies required by the asset registries

package interfaces

import (
	"io/fs"
	"time"

	"filter-assets/pkg/featureflags"
)

// Dependencies holds all external dependencies required by the core business logic
type Dependencies struct {
	// Store persists registry snapshots and asset content
	Store Store

	// UserStore persists user-owned assets; Store is used when nil
	UserStore Store

	// HTTPClient provides HTTP request functionality
	HTTPClient HTTPClient

	// LocalAssets serves asset paths that carry no URL scheme
	LocalAssets fs.FS

	// Codec creates the optional content codec; nil disables encoding
	Codec CodecFactory

	// CodecDetector recognises encoded blobs without a codec instance
	CodecDetector EncodingDetector

	// Logger provides structured logging
	Logger Logger

	// Flags toggles runtime behaviour; nil disables every flag
	Flags featureflags.Manager

	// Clock returns the current time; nil uses the wall clock
	Clock func() time.Time
}

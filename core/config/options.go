// ABOUTME: Asset service configuration for registry, fetcher and updater behaviour
// ABOUTME: Provides functional options independent of environment configuration

package config

import "time"

// AssetConfig controls the behaviour of the asset service
type AssetConfig struct {
	// BootstrapLocation is fetched to build the source registry on cold start
	BootstrapLocation string

	// ManifestKey identifies the asset whose content is the source manifest
	ManifestKey string

	// FetchTimeout aborts a transfer that makes no progress for this long
	FetchTimeout time.Duration

	// UpdateDelay is the default pause between two fetches of an update cycle
	UpdateDelay time.Duration

	// SaveDelay coalesces registry persistence writes
	SaveDelay time.Duration

	// ExemptKeys are never refreshed from remote locations
	ExemptKeys []string

	// Compression encodes large cached assets through the injected codec
	Compression bool

	// CompressionThreshold is the minimum content size for encoding
	CompressionThreshold int

	// CodecIdle releases an unused codec after this long
	CodecIdle time.Duration

	// UserAssetPrefix marks keys stored outside the cache registry
	UserAssetPrefix string
}

// DefaultAssetConfig returns the default configuration
func DefaultAssetConfig() AssetConfig {
	return AssetConfig{
		BootstrapLocation:    "assets/assets.json",
		ManifestKey:          "assets.json",
		FetchTimeout:         30 * time.Second,
		UpdateDelay:          120 * time.Second,
		SaveDelay:            500 * time.Millisecond,
		Compression:          false,
		CompressionThreshold: 4096,
		CodecIdle:            60 * time.Second,
		UserAssetPrefix:      "user-",
	}
}

// AssetOption is a functional option for configuring the asset service
type AssetOption func(*AssetConfig)

// WithBootstrapLocation sets where the initial manifest is fetched from
func WithBootstrapLocation(location string) AssetOption {
	return func(c *AssetConfig) {
		c.BootstrapLocation = location
	}
}

// WithManifestKey sets the asset key of the source manifest
func WithManifestKey(key string) AssetOption {
	return func(c *AssetConfig) {
		c.ManifestKey = key
	}
}

// WithFetchTimeout sets the inactivity timeout of a single transfer
func WithFetchTimeout(d time.Duration) AssetOption {
	return func(c *AssetConfig) {
		c.FetchTimeout = d
	}
}

// WithUpdateDelay sets the default delay between update attempts
func WithUpdateDelay(d time.Duration) AssetOption {
	return func(c *AssetConfig) {
		c.UpdateDelay = d
	}
}

// WithSaveDelay sets the persistence debounce window
func WithSaveDelay(d time.Duration) AssetOption {
	return func(c *AssetConfig) {
		c.SaveDelay = d
	}
}

// WithExemptKeys sets the assets that are never refreshed remotely
func WithExemptKeys(keys ...string) AssetOption {
	return func(c *AssetConfig) {
		c.ExemptKeys = append([]string(nil), keys...)
	}
}

// WithCompression enables or disables content encoding
func WithCompression(enabled bool) AssetOption {
	return func(c *AssetConfig) {
		c.Compression = enabled
	}
}

// WithCodecIdle sets how long an unused codec is kept
func WithCodecIdle(d time.Duration) AssetOption {
	return func(c *AssetConfig) {
		c.CodecIdle = d
	}
}

// NewAssetConfig creates a new asset configuration with the given options
func NewAssetConfig(opts ...AssetOption) AssetConfig {
	config := DefaultAssetConfig()

	for _, opt := range opts {
		opt(&config)
	}

	return config
}

// ABOUTME: Configuration management for the application with environment variable support
// ABOUTME: Defines configuration structures for storage, fetching, updates and logging

package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"filter-assets/pkg/utils/duration"
	"filter-assets/pkg/utils/parse"
)

// Config holds all application configuration
type Config struct {
	// Store contains persistence backend configuration
	Store StoreConfig

	// Assets contains asset registry configuration
	Assets AssetsConfig

	// Updater contains update scheduling configuration
	Updater UpdaterConfig

	// Log contains logging configuration
	Log LogConfig
}

// StoreConfig holds persistence backend configuration
type StoreConfig struct {
	// Type specifies the store backend (memory/redis/sqlite)
	Type string

	// Redis contains Redis-specific configuration
	Redis RedisConfig

	// SQLitePath is the database file of the sqlite backend
	SQLitePath string
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Address is the Redis server address
	Address string

	// Password is the Redis authentication password
	Password string

	// DB is the Redis database number
	DB int

	// KeyPrefix namespaces every stored key
	KeyPrefix string
}

// AssetsConfig holds asset registry configuration
type AssetsConfig struct {
	// BootstrapLocation is the manifest fetched on a cold start
	BootstrapLocation string

	// LocalDir is the directory serving scheme-less asset paths
	LocalDir string

	// FetchTimeout aborts transfers that make no progress
	FetchTimeout time.Duration

	// FetchRate caps outgoing requests per second; 0 disables the cap
	FetchRate float64

	// SaveDelay coalesces registry writes
	SaveDelay time.Duration

	// Compression encodes large cached assets with zstd
	Compression bool
}

// UpdaterConfig holds update scheduling configuration
type UpdaterConfig struct {
	// Delay is the pause between two fetches of a cycle
	Delay time.Duration

	// Interval is how often the daemon starts an update cycle
	Interval time.Duration

	// ExemptKeys are never refreshed remotely
	ExemptKeys []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Store: StoreConfig{
			Type: getEnvOrDefault("STORE_TYPE", "sqlite"),
			Redis: RedisConfig{
				Address:   getEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
				Password:  getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:        parse.IntOrDefault(os.Getenv("REDIS_DB"), 0),
				KeyPrefix: getEnvOrDefault("REDIS_KEY_PREFIX", "filter-assets:"),
			},
			SQLitePath: getEnvOrDefault("SQLITE_PATH", "assets.db"),
		},
		Assets: AssetsConfig{
			BootstrapLocation: getEnvOrDefault("BOOTSTRAP_LOCATION", "assets/assets.json"),
			LocalDir:          getEnvOrDefault("LOCAL_ASSET_DIR", "."),
			FetchTimeout:      getEnvAsDurationOrDefault("FETCH_TIMEOUT", 30*time.Second),
			FetchRate:         getEnvAsFloatOrDefault("FETCH_RATE", 0),
			SaveDelay:         getEnvAsDurationOrDefault("SAVE_DELAY", 500*time.Millisecond),
			Compression:       parse.BoolOrDefault(os.Getenv("CACHE_COMPRESSION"), false),
		},
		Updater: UpdaterConfig{
			Delay:      getEnvAsDurationOrDefault("UPDATE_DELAY", 120*time.Second),
			Interval:   getEnvAsDurationOrDefault("UPDATE_INTERVAL", time.Hour),
			ExemptKeys: parse.List(os.Getenv("EXEMPT_KEYS")),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	return cfg, nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsFloatOrDefault returns the environment variable as float64 or a default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault accepts seconds, Go durations or HH:MM:SS
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	return duration.ParseOrDefault(os.Getenv(key), defaultValue)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "memory", "redis", "sqlite":
	default:
		return errors.New("store type must be 'memory', 'redis' or 'sqlite'")
	}

	if c.Store.Type == "redis" && c.Store.Redis.Address == "" {
		return errors.New("redis address cannot be empty when using redis store")
	}

	if c.Store.Type == "sqlite" && c.Store.SQLitePath == "" {
		return errors.New("sqlite path cannot be empty when using sqlite store")
	}

	if c.Assets.BootstrapLocation == "" {
		return errors.New("bootstrap location cannot be empty")
	}

	if c.Assets.FetchTimeout < time.Second {
		return errors.New("fetch timeout must be at least 1 second")
	}

	if c.Assets.FetchRate < 0 {
		return errors.New("fetch rate cannot be negative")
	}

	if c.Updater.Delay < 0 || c.Assets.SaveDelay < 0 {
		return errors.New("delays cannot be negative")
	}

	if c.Updater.Interval < time.Minute {
		return errors.New("update interval must be at least 1 minute")
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("log format must be 'text' or 'json'")
	}

	return nil
}

// Package infrastructure provides concrete implementations of the interfaces
// defined in the core package. These implementations handle external concerns
// such as persistence, content encoding, HTTP communication, and logging.
//
// The infrastructure package is organized by technical concern:
//
// - store/memory: In-memory key-value store on patrickmn/go-cache
// - store/redis: Redis key-value store on go-redis
// - store/sqlite: File-backed key-value store on go-sqlite3
// - codec/zstd: Zstandard content codec on klauspost/compress
// - http/standard: net/http client with retry logic and optional rate limiting
// - logger/standard: logrus logger with optional lumberjack file rotation
//
// # Stores
//
// Memory Store Example:
//
//	store := memory.NewStore()
//	err := store.Set(ctx, map[string][]byte{"cache/easylist": content})
//	values, err := store.Get(ctx, []string{"cache/easylist"})
//
// Redis Store Example:
//
//	store, err := redis.NewStore(config.RedisConfig{
//	    Address:   "localhost:6379",
//	    KeyPrefix: "filter-assets:",
//	})
//
// SQLite Store Example:
//
//	store, err := sqlite.NewStore("assets.db")
//	defer store.Close()
//
// # HTTP Client
//
// The HTTP client retries transient server failures:
//
//	client := standard.NewStandardHTTPClient(30*time.Second, standard.WithRateLimit(2, 4))
//	resp, err := client.Get(ctx, "https://example.com/list.txt")
//	if err != nil {
//	    // Handle error
//	}
//	defer resp.Body().Close()
//
// # Logger
//
//	logger, err := standard.NewLogger(standard.Options{Level: "debug", Format: "json"})
//	logger.Info("Asset updated", map[string]interface{}{
//	    "asset": "easylist",
//	})
package infrastructure

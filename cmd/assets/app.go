// ABOUTME: Wires configuration, stores, codec and logger into an asset service
// ABOUTME: Shared by every subcommand of the assets CLI

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"filter-assets/core/assets"
	coreconfig "filter-assets/core/config"
	"filter-assets/core/interfaces"
	zstdcodec "filter-assets/infrastructure/codec/zstd"
	stdhttp "filter-assets/infrastructure/http/standard"
	stdlogger "filter-assets/infrastructure/logger/standard"
	"filter-assets/infrastructure/store/memory"
	"filter-assets/infrastructure/store/redis"
	"filter-assets/infrastructure/store/sqlite"
	"filter-assets/pkg/config"
	"filter-assets/pkg/featureflags"
)

// app bundles the service with the resources it must release
type app struct {
	cfg     *config.Config
	logger  *stdlogger.StandardLogger
	flags   featureflags.Manager
	service *assets.Service
	closers []io.Closer
}

func newApp(cfg *config.Config) (*app, error) {
	logger, err := stdlogger.NewLogger(stdlogger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		logger.Warn("Unknown log level, using info", map[string]interface{}{
			"level": cfg.Log.Level,
		})
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		flags:  newFlags(),
	}

	store, err := a.newStore()
	if err != nil {
		return nil, err
	}

	var httpOpts []stdhttp.Option
	if cfg.Assets.FetchRate > 0 {
		httpOpts = append(httpOpts, stdhttp.WithRateLimit(cfg.Assets.FetchRate, 4))
	}

	deps := interfaces.Dependencies{
		Store:         store,
		HTTPClient:    stdhttp.NewStandardHTTPClient(cfg.Assets.FetchTimeout, httpOpts...),
		LocalAssets:   os.DirFS(cfg.Assets.LocalDir),
		Codec:         zstdcodec.Factory(zstd.SpeedDefault),
		CodecDetector: zstdcodec.IsFrame,
		Logger:        logger,
		Flags:         a.flags,
	}

	service, err := assets.NewService(deps, assetOptions(cfg)...)
	if err != nil {
		a.close()
		return nil, err
	}
	a.service = service
	return a, nil
}

// newStore selects the persistence backend. A redis backend that cannot be
// reached falls back to memory.
func (a *app) newStore() (interfaces.Store, error) {
	switch a.cfg.Store.Type {
	case "redis":
		store, err := redis.NewStore(a.cfg.Store.Redis)
		if err != nil {
			a.logger.Error("Failed to connect to Redis, falling back to memory", map[string]interface{}{
				"error": err.Error(),
			})
			return memory.NewStore(), nil
		}
		a.closers = append(a.closers, store)
		a.logger.Info("Using Redis store", map[string]interface{}{
			"address": a.cfg.Store.Redis.Address,
		})
		return store, nil
	case "sqlite":
		store, err := sqlite.NewStore(a.cfg.Store.SQLitePath, sqlite.WithLogger(a.logger))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, store)
		a.logger.Info("Using SQLite store", map[string]interface{}{
			"path": a.cfg.Store.SQLitePath,
		})
		return store, nil
	default:
		a.logger.Info("Using memory store", nil)
		return memory.NewStore(), nil
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("Failed to close store", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	a.closers = nil
}

func assetOptions(cfg *config.Config) []coreconfig.AssetOption {
	return []coreconfig.AssetOption{
		coreconfig.WithBootstrapLocation(cfg.Assets.BootstrapLocation),
		coreconfig.WithFetchTimeout(cfg.Assets.FetchTimeout),
		coreconfig.WithSaveDelay(cfg.Assets.SaveDelay),
		coreconfig.WithCompression(cfg.Assets.Compression),
		coreconfig.WithUpdateDelay(cfg.Updater.Delay),
		coreconfig.WithExemptKeys(cfg.Updater.ExemptKeys...),
	}
}

// newFlags reads FEATURE_* variables; auto updates stay on unless
// FEATURE_AUTO_UPDATE says otherwise
func newFlags() featureflags.Manager {
	flags := featureflags.NewEnvManager("")
	if _, set := os.LookupEnv("FEATURE_AUTO_UPDATE"); !set {
		flags.SetEnabled(featureflags.AutoUpdate, true)
	}
	return flags
}

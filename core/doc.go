// Package core contains the business logic for filter-assets.
// It keeps filter lists and resource files, fetched from remote or bundled
// locations, in a local persistent cache and refreshes them in the background.
//
// The core package is organized into several sub-packages:
//
// - domain: source entries, patches, cache entries, matchers and notification payloads
// - observer: synchronous notification bus with veto collection
// - fetcher: text retrieval with an inactivity timeout and content checks
// - assembler: include-directive expansion of filter lists
// - sources: the persisted asset-source registry
// - cache: the persisted asset-cache registry with optional encoding
// - updater: the background update cycle
// - assets: the service tying all of the above together
// - errors: custom error types and read result codes
// - interfaces: contracts for external dependencies (store, HTTP, codec, logger)
//
// # Design Principles
//
// The core package follows clean architecture principles:
// - No external framework dependencies
// - All external dependencies are injected via interfaces
// - Business logic is testable in isolation
//
// # Usage Example
//
//	import (
//	    "filter-assets/core/assets"
//	    "filter-assets/core/interfaces"
//	)
//
//	deps := interfaces.Dependencies{
//	    Store:       myStore,      // implements interfaces.Store
//	    HTTPClient:  myHTTPClient, // implements interfaces.HTTPClient
//	    LocalAssets: os.DirFS("."),
//	    Logger:      myLogger,     // implements interfaces.Logger
//	}
//
//	service, err := assets.NewService(deps)
//	if err != nil {
//	    return err
//	}
//	if err := service.Initialize(ctx); err != nil {
//	    return err
//	}
//
//	res := service.Get(ctx, "easylist", assets.GetOptions{})
//	service.UpdateStart()
package core

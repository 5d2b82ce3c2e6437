// Package interfaces defines the core interfaces used throughout the application.
// These interfaces allow for dependency injection and make the code testable.
package interfaces

import (
	"context"
)

// Store defines the persistent key-value collaborator that holds registry
// snapshots and asset content.
// Implementations can be Redis, SQLite, in-memory, or any other store.
//
// Example usage:
//
//	store := someStore // implements Store interface
//
//	// Store values
//	err := store.Set(ctx, map[string][]byte{"cache/easylist": content})
//
//	// Retrieve values; missing keys are absent from the result
//	bin, err := store.Get(ctx, []string{"cache/easylist"})
//
//	// Delete values
//	err = store.Remove(ctx, []string{"cache/easylist"})
type Store interface {
	// Get retrieves the values stored under keys.
	// Keys that don't exist are omitted from the returned map; that is not an error.
	Get(ctx context.Context, keys []string) (map[string][]byte, error)

	// Set stores every key/value pair of items.
	Set(ctx context.Context, items map[string][]byte) error

	// Remove deletes the given keys.
	// Returns nil for keys that don't exist.
	Remove(ctx context.Context, keys []string) error
}

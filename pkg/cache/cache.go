// Package cache provides a pluggable key-value store with TTL semantics.
//
// The service keeps exactly one durable artifact: a snapshot of the resolved
// repository listing, stored under a fixed key with a fixed expiry. The Store
// interface abstracts where that snapshot lives:
//   - file: filesystem-backed entries for single-instance deployments (default)
//   - redis: shared entries for multi-instance deployments
//   - null: no-op store that disables caching entirely
//
// Stores must be safe for concurrent use from overlapping requests. The
// listing is idempotent within a TTL window, so overlapping populate-on-miss
// writes are acceptable; last writer wins.
package cache

import (
	"context"
	"time"
)

// Store is the interface for cache storage backends.
type Store interface {
	// Get retrieves a value from the cache.
	// The second return value reports whether the key was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value in the cache with the given TTL.
	// A TTL of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value from the cache. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

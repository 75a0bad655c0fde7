// Package genstore keeps per-fragment generation counters. A fragment's
// generation is folded into the internal version of every entry written for
// it, so bumping the counter invalidates all of its cached variants at once.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore (default) for in-process gens, or RedisGenStore when
// several processes share one fragment backend.
type GenStore interface {
	// Snapshot returns the current generation of scope; missing => 0.
	Snapshot(ctx context.Context, scope string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, scope string) (uint64, error)
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}

// Package provider defines the storage backends fragcache persists rendered
// fragments into.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). The envelope written by fragcache is
// validated on read and a foreign value is reported as corrupt, which causes a
// re-render and overwrite.
//
// The keyspace "template." is owned by fragcache's default key builder.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. A cache backend in fragcache
// terms is one named Provider.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL; ttl <= 0 means no expiry.
	// May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

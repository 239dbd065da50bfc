// Package cache defines the ephemeral keyed store every ceremony in the
// auth core is built on: OAuth anti-CSRF state, WebAuthn challenge sessions
// and the refresh-token blacklist all live here as short-lived keys.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports an absent (or expired) key. It is an expected outcome
// for ceremony lookups, not an internal fault.
var ErrNotFound = errors.New("cache: not found")

// Store is a key-value store with per-key TTLs and atomic create/consume
// primitives.
//
// SetNX and GetDel are the load-bearing operations: SetNX makes
// check-then-set races impossible for blacklist and collision guards, and
// GetDel guarantees a challenge can be observed by at most one completer.
type Store interface {
	// Set writes a value with the given TTL, overwriting any existing key.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX writes the value only if the key does not exist. Returns true
	// if the write happened, false if the key was already present.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Get returns the value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetDel atomically reads and deletes the value, or returns
	// ErrNotFound. Two concurrent callers can never both receive it.
	GetDel(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Package cache abstracts the key-value store used for submission
// status tracking and problem metadata.
package cache

import (
	"context"
	"time"
)

// Cache is the store contract the judge pipeline depends on. The
// abstraction keeps business code independent of the concrete backend.
type Cache interface {
	BasicOps
	HashOps
	LockOps

	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close closes the connection
	Close() error
}

// BasicOps defines plain key-value operations
type BasicOps interface {
	// Get retrieves the value for the given key, empty string on miss
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair; ttl 0 means no expiration
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Expire sets the time to live of an existing key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Incr increments the integer value of a key by 1
	Incr(ctx context.Context, key string) (int64, error)
}

// HashOps defines hash operations, backing the per-submission status
// hashes
type HashOps interface {
	// HGetAll returns all fields and values of the hash stored at key
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HMSet sets multiple fields in the hash stored at key
	HMSet(ctx context.Context, key string, fields map[string]interface{}) error
}

// LockOps defines distributed lock operations
type LockOps interface {
	// TryLock attempts to acquire a lock, returning a release token on
	// success and empty string when the lock is held elsewhere
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Unlock releases a lock if the token still owns it
	Unlock(ctx context.Context, key, token string) error
}

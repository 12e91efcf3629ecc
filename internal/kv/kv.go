// Package kv holds the key-value backends application state is persisted
// to. Every collection is a single JSON value under its own key, so the
// interface only needs byte-level get/set with one atomic multi-key write.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the contract every backend implements.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// MGet returns the values of the keys that exist. Missing keys are
	// absent from the result rather than reported as errors.
	MGet(ctx context.Context, keys ...string) (map[string][]byte, error)
	// SetMany writes all entries atomically without expiry.
	SetMany(ctx context.Context, entries map[string][]byte) error
	// Set writes one entry. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Package kv defines the string key-value contract that voxdrill persists
// practice sessions through.
//
// The contract is deliberately small (get, set, remove) so that any backend
// with string values can carry it: an in-process map, SQLite, PostgreSQL,
// Redis or MongoDB. Values are opaque to the store; callers serialise their
// records before calling Set.
//
// Every implementation must be safe for concurrent use.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("kv: store closed")

// Store is a string key-value store.
type Store interface {
	// Get returns the value stored under key. found is false when the key
	// does not exist; that is not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Ping verifies the backend is reachable. It backs readiness probes.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Package kv defines the key-value contract the shoptrail core persists
// through, plus SQLite and Redis implementations of it.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv: store closed")

// Store maps string keys to JSON-serializable values. Each key is read and
// written atomically; SetMany is the only multi-key write and backends make
// it as atomic as their substrate allows.
type Store interface {
	// Get decodes the value stored at key into dest. It reports false when
	// the key is absent, leaving dest untouched.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	SetMany(ctx context.Context, entries map[string]any) error
	Remove(ctx context.Context, keys ...string) error

	// Usage returns the encoded size in bytes of each present key.
	Usage(ctx context.Context, keys ...string) (map[string]int64, error)

	Close() error
}

// Package core defines the repository ports the service layer depends on.
// Implementations live in internal/data.
package core

import (
	"context"
	"time"
)

// CacheRepository is the small key/value surface used for cross-process
// locks and health checks.
type CacheRepository interface {
	// Get returns nil, nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	Health(ctx context.Context) error
}

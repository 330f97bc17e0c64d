// Package cache provides the TTL-capable key/value store the session and
// password-reset subsystems are built on. Production deployments use Redis;
// tests and single-node development use the in-memory implementation.
package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when a key does not exist or has expired.
// The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("cache: key not found")

// Store is a minimal TTL key/value contract. Values are opaque bytes; callers
// own the serialization format. Every write is a single-key atomic set, so a
// caller aborting mid-flow never leaves a half-written entry behind.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key with the given TTL. A non-positive TTL is
	// rejected by implementations; entries always expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

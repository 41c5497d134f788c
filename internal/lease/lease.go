// Package lease provides TTL-based keyed leases used to deduplicate
// reconcile events and to enforce corrective-task cooldowns. The Redis
// implementation survives process restarts and multi-instance deployments;
// the in-memory implementation covers single-process runs and tests.
package lease

import (
	"context"
	"time"
)

// Store hands out keyed leases with a TTL.
type Store interface {
	// Acquire takes the lease for key if it is free, returning true on
	// success. The lease expires after ttl if not released.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees the lease for key before its TTL expires.
	Release(ctx context.Context, key string) error

	// Held reports whether the lease for key is currently taken.
	Held(ctx context.Context, key string) (bool, error)
}

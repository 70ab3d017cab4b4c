// Package cache provides the two-tier artifact store: an optional Redis
// ephemeral tier in front of a mandatory file-backed durable tier.
package cache

import (
	"context"
	"time"
)

// Entry is a cached artifact with its storage timestamp. Expiry is derived
// from StoredAt plus the caller's TTL, never stored absolutely, so cleanup
// stays lazy.
type Entry struct {
	Payload  []byte    `json:"payload"`
	StoredAt time.Time `json:"storedAt"`

	tier string
}

// Age returns how long ago the entry was stored.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Tier names the tier that served the entry. Set by the composed store;
// empty for entries read from a single tier directly.
func (e Entry) Tier() string { return e.tier }

// Cache is the minimal tier contract. Get returns domain.ErrNotFound on a
// miss; implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

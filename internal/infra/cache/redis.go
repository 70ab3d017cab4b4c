package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisclient "github.com/scoregate/scoregate/internal/infra/redis"
)

// RedisCache is the ephemeral tier backed by Redis. Entries are stored as a
// JSON envelope so StoredAt survives the round trip.
type RedisCache struct {
	client *redisclient.Client
}

// NewRedisCache wraps a connected Redis client as a Cache.
func NewRedisCache(client *redisclient.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Entry, error) {
	data, err := r.client.GetBytes(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return e, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	data, err := json.Marshal(Entry{Payload: payload, StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return r.client.SetBytes(ctx, key, data, ttl)
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	return r.client.Exists(ctx, key)
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Delete(ctx, key)
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scoregate/scoregate/internal/core/domain"
)

// keyPrefix namespaces all gateway keys in a shared Redis instance.
const keyPrefix = "scoregate:"

// Client wraps Redis operations for the ephemeral cache tier.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration. Enabled gates the whole tier:
// when false the gateway runs durable-only.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func fullKey(key string) string {
	return keyPrefix + key
}

// GetBytes fetches a raw value. Returns domain.ErrNotFound on a miss.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return val, nil
}

// SetBytes stores a raw value with a TTL. A zero TTL stores without expiry.
func (c *Client) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, fullKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Exists checks for a key.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fullKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("exists failed: %w", err)
	}
	return n > 0, nil
}

// Delete removes a key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, fullKey(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

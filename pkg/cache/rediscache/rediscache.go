package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/asakaida/pagetypes/pkg/cache"
)

// Cache stores JSON encoded values in Redis so that every server instance
// reads the same entries.
type Cache[V any] struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration

	hits    atomic.Uint64
	misses  atomic.Uint64
	added   atomic.Uint64
	metrics bool
}

// Config holds configuration for the Redis cache.
type Config struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces the keys so Clear only touches this cache.
	KeyPrefix string

	// DefaultTTL is used by Set when ttl is zero.
	DefaultTTL time.Duration

	EnableMetrics bool
}

var _ cache.Cache[int] = (*Cache[int])(nil)

// New connects to Redis and verifies the connection.
func New[V any](ctx context.Context, config *Config) (*Cache[V], error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Cache[V]{
		rdb:     rdb,
		prefix:  config.KeyPrefix,
		ttl:     config.DefaultTTL,
		metrics: config.EnableMetrics,
	}, nil
}

// Get retrieves a value from Redis. Errors and undecodable entries count as misses.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		c.miss()
		return zero, false
	}

	var value V
	if err := json.Unmarshal(raw, &value); err != nil {
		c.miss()
		return zero, false
	}

	if c.metrics {
		c.hits.Add(1)
	}
	return value, true
}

// Set stores a value with TTL. A zero ttl uses the default TTL.
func (c *Cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}

	if c.metrics {
		c.added.Add(1)
	}
	return nil
}

// Delete removes a value from Redis.
func (c *Cache[V]) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the prefix.
func (c *Cache[V]) Clear(ctx context.Context) error {
	if c.prefix == "" {
		return errors.New("refusing to clear a redis cache without a key prefix")
	}

	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(batch) > 0 {
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return nil
}

// Close closes the Redis client.
func (c *Cache[V]) Close() error {
	return c.rdb.Close()
}

// Metrics returns cache statistics. Redis evicts on its own, so KeysEvicted stays zero.
func (c *Cache[V]) Metrics() *cache.Metrics {
	if !c.metrics {
		return &cache.Metrics{}
	}
	return &cache.Metrics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		KeysAdded: c.added.Load(),
	}
}

func (c *Cache[V]) miss() {
	if c.metrics {
		c.misses.Add(1)
	}
}

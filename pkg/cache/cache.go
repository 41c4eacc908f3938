package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the requested key was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores raw upstream response bodies in Redis with a fixed TTL.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a response cache with the given TTL.
func New(redisClient *redis.Client, ttl time.Duration) *Cache {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Key generates a deterministic cache key string for a request.
// Format: export:path:query1=val1:query2=val2
//
// Example:
//
//	export:posts:userId=2
func Key(path string, query url.Values) string {
	parts := []string{"export"}

	endpoint := strings.Trim(path, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism
	if len(query) > 0 {
		queryKeys := make([]string, 0, len(query))
		for key := range query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(query[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}

// Get retrieves a cached response body by key.
// Returns ErrCacheMiss if the key doesn't exist.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.Inc()
	return data, nil
}

// Set stores a response body under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, body []byte) error {
	if err := c.redis.Set(ctx, key, body, c.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cache entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

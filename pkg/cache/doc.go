// Package cache provides an optional Redis-backed response cache for
// upstream GET requests.
//
// The upstream API serves immutable-enough collection data, so the cache
// stores raw response bodies under a deterministic key derived from the
// request path and query, with a fixed TTL from configuration. There is no
// ETag or conditional request handling: the API offers no useful
// cache-validation contract.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	c := cache.New(redisClient, 5*time.Minute)
//
//	body, err := c.Get(ctx, cache.Key("/users", nil))
//	if err == cache.ErrCacheMiss {
//		// fetch from upstream, then c.Set(...)
//	}
//
// # Metrics
//
// The cache exports Prometheus metrics:
//
//   - export_cache_hits_total - Cache hits
//   - export_cache_misses_total - Cache misses
//   - export_cache_errors_total{operation} - Cache operation errors
package cache

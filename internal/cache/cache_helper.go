package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache errors. Callers collapse both to a miss (fail-open policy):
// ErrCacheNotFound means the key is absent, ErrCacheNotAvailable means the
// cache itself errored or is not configured. The distinction exists so tests
// can assert on fail-open behavior directly.
var (
	ErrCacheNotFound     = errors.New("cache: key not found")
	ErrCacheNotAvailable = errors.New("cache: not available")
)

// DefaultTTL bounds staleness of repopulated entries.
const DefaultTTL = time.Hour

// CacheHelper provides the shared cache operations used by the services.
// A nil client degrades every operation to a miss/no-op so the system stays
// correct with the cache entirely absent.
type CacheHelper struct {
	client *redis.Client
}

// NewCacheHelper creates a cache helper. client may be nil (caching disabled).
func NewCacheHelper(client *redis.Client) *CacheHelper {
	return &CacheHelper{client: client}
}

// Available reports whether a cache backend is configured.
func (c *CacheHelper) Available() bool {
	return c.client != nil
}

// Get retrieves and unmarshals a cached value into dest.
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheNotFound
		}
		return fmt.Errorf("%w: get %s: %v", ErrCacheNotAvailable, key, err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		// A corrupt entry is as good as a miss; it will be overwritten.
		return fmt.Errorf("%w: unmarshal %s: %v", ErrCacheNotAvailable, key, err)
	}

	return nil
}

// Set marshals and stores a value with the given TTL.
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error for %s: %w", key, err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys, pipelining when more than one is given.
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	if len(keys) > 1 {
		pipe := c.client.Pipeline()
		pipe.Del(ctx, keys...)
		_, err := pipe.Exec(ctx)
		return err
	}

	return c.client.Del(ctx, keys...).Err()
}

// Exists checks whether a key is present.
func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}

	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrCacheNotAvailable, key, err)
	}

	return count > 0, nil
}

// InvalidatePattern removes all keys matching a glob pattern using SCAN and
// pipelined DEL, returning the number of keys removed.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if c.client == nil {
		return 0, nil
	}

	var cursor uint64
	var keys []string

	for {
		var scanKeys []string
		var err error
		scanKeys, cursor, err = c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("cache scan pattern error: %w", err)
		}
		keys = append(keys, scanKeys...)
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return 0, nil
	}

	pipe := c.client.Pipeline()
	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		pipe.Del(ctx, keys[i:end]...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("cache pipeline delete error: %w", err)
	}

	return len(keys), nil
}

// CacheOrExecute implements the cache-aside pattern: return the cached value
// when present, otherwise execute fetchFunc, repopulate the cache and return
// the fetched value. Cache failures degrade to a plain fetch.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}

	value, err := fetchFunc()
	if err != nil {
		return err
	}

	SafeSet(ctx, c, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}

	return json.Unmarshal(data, dest)
}

// Ping verifies cache connectivity.
func (c *CacheHelper) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := c.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache ping failed: %w", err)
	}

	return nil
}

package inline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares fallback images between API instances. Each value is
// bounded by maxValueBytes and expires after ttl.
type RedisCache struct {
	client        redis.UniversalClient
	prefix        string
	maxValueBytes int
	ttl           time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient, maxValueBytes int, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: "ancestral:inline:", maxValueBytes: maxValueBytes, ttl: ttl}
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if c.maxValueBytes > 0 && len(value) > c.maxValueBytes {
		return ErrQuotaExceeded
	}
	err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err()
	if err != nil && isOOM(err) {
		return ErrQuotaExceeded
	}
	return err
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// isOOM matches the error redis returns once maxmemory is reached.
func isOOM(err error) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return strings.HasPrefix(rerr.Error(), "OOM")
	}
	return false
}

var _ Cache = (*RedisCache)(nil)

package inline

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nawabsahab16/ancestral-ai/internal/infra"
)

// DefaultTTL bounds how long shared fallback images live in Redis.
const DefaultTTL = 24 * time.Hour

// FromConfig returns a Redis-backed cache when REDIS_ADDR is set and an
// in-memory one otherwise. The returned client is nil for the memory cache.
func FromConfig(ctx context.Context, cfg *infra.Config) (Cache, *redis.Client, error) {
	if cfg.RedisAddr == "" {
		return NewMemoryCache(cfg.InlineQuotaBytes), nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisCache(client, cfg.InlineQuotaBytes, DefaultTTL), client, nil
}

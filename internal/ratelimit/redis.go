package ratelimit

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/dependency"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	// URL of the shared counter store. When empty or unreachable the
	// limiter falls back to the in-process store.
	URL string `mapstructure:"url"`
}

// NewCounterStore connects to Redis when configured and reachable,
// otherwise returns the in-memory fallback. The fallback is not correct
// across multiple server instances; that limitation is accepted for
// single-instance and dev deployments.
func NewCounterStore(ctx context.Context, c *Config) dependency.CounterStore {
	if c.URL == "" {
		slog.Default().InfoContext(ctx, "redis not configured, using in-memory rate limit counters")
		return NewMemoryStore()
	}

	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		slog.Default().WarnContext(ctx, "can't parse redis url, using in-memory rate limit counters",
			slog.String("err", err.Error()),
		)
		return NewMemoryStore()
	}

	cli := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx).Err(); err != nil {
		slog.Default().WarnContext(ctx, "redis unreachable, using in-memory rate limit counters",
			slog.String("err", err.Error()),
		)
		cli.Close()
		return NewMemoryStore()
	}

	slog.Default().InfoContext(ctx, "redis connected, using shared rate limit counters")
	return NewRedisStore(cli)
}

// RedisStore counts requests in Redis so limits hold across instances.
type RedisStore struct {
	cli *redis.Client
}

func NewRedisStore(cli *redis.Client) *RedisStore {
	return &RedisStore{cli: cli}
}

// Incr atomically bumps the counter and sets its expiry on first touch.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.cli.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	pttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("can't bump counter %s: %w", key, err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		ttl = window
	}

	return incr.Val(), ttl, nil
}

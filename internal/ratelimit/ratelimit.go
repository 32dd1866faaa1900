// Package ratelimit throttles mutating API requests per client key.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxLocalKeys = 4096

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "bookathing:ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	return count <= int64(l.limit), nil
}

// LocalLimiter keeps a token bucket per key in process memory. The least
// recently seen keys are evicted once maxLocalKeys is reached.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	every    rate.Limit
	burst    int
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	cache, _ := lru.New[string, *rate.Limiter](maxLocalKeys)
	if limit <= 0 {
		limit = 1
	}
	return &LocalLimiter{
		limiters: cache,
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.every, l.burst)
		l.limiters.Add(key, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow(), nil
}

// FallbackLimiter consults primary and switches to fallback for the
// request when primary fails.
type FallbackLimiter struct {
	primary  Limiter
	fallback Limiter
	logger   *zerolog.Logger
}

func NewFallbackLimiter(primary, fallback Limiter, logger *zerolog.Logger) *FallbackLimiter {
	return &FallbackLimiter{primary: primary, fallback: fallback, logger: logger}
}

func (l *FallbackLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := l.primary.Allow(ctx, key)
	if err == nil {
		return allowed, nil
	}
	l.logger.Warn().Err(err).Msg("Rate limiter backend failed, using local limiter")
	return l.fallback.Allow(ctx, key)
}

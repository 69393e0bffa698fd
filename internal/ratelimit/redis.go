package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "huddle:rate_limit:"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
}

// Limiter is a fixed-window counter shared across server instances.
type Limiter struct {
	store  cmdable
	raw    *redis.Client
	limit  int64
	window time.Duration
}

// New connects to redisURL and verifies connectivity.
func New(ctx context.Context, redisURL string, limit int, window time.Duration) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Limiter{store: raw, raw: raw, limit: int64(limit), window: window}, nil
}

// Allow counts one hit for scope and reports whether it stays within the
// limit for the current window. A nil Limiter allows everything.
func (l *Limiter) Allow(ctx context.Context, scope string) (bool, error) {
	if l == nil {
		return true, nil
	}
	key := keyPrefix + scope
	count, err := l.store.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 && l.window > 0 {
		if err := l.store.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= l.limit, nil
}

func (l *Limiter) Close() error {
	if l == nil || l.raw == nil {
		return nil
	}
	return l.raw.Close()
}

package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient opens a client for cfg. The connection is established lazily.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// redisLimiter counts requests in fixed windows shared by every instance
// pointing at the same Redis. Keys expire with their window.
type redisLimiter struct {
	client     *redis.Client
	prefix     string
	requests   int64
	window     time.Duration
	ownsClient bool
	now        func() time.Time
	logger     *slog.Logger
}

// NewRedisLimiter creates a fixed-window limiter. When ownsClient is set,
// Stop closes the client.
func NewRedisLimiter(client *redis.Client, prefix string, requests int, window time.Duration, ownsClient bool) Stoppable {
	return &redisLimiter{
		client:     client,
		prefix:     prefix,
		requests:   int64(requests),
		window:     window,
		ownsClient: ownsClient,
		now:        time.Now,
		logger:     slog.Default().With("component", "ratelimit"),
	}
}

func (l *redisLimiter) windowKey(key string) string {
	slot := l.now().UnixNano() / int64(l.window)
	return fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)
}

// Allow fails open when Redis is unreachable.
func (l *redisLimiter) Allow(ctx context.Context, key string) bool {
	k := l.windowKey(key)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		l.logger.Warn("Rate limit check failed, allowing request", "key", key, "error", err)
		return true
	}
	return incr.Val() <= l.requests
}

func (l *redisLimiter) Reset(ctx context.Context, key string) {
	if err := l.client.Del(ctx, l.windowKey(key)).Err(); err != nil {
		l.logger.Warn("Rate limit reset failed", "key", key, "error", err)
	}
}

func (l *redisLimiter) Stop() {
	if l.ownsClient {
		_ = l.client.Close()
	}
}

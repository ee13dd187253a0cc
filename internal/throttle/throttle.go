package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carenest-server/internal/config"
)

// Limiter decides whether another attempt for key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// New returns a Redis backed limiter when REDIS_URL is set, otherwise one
// that always allows.
func New(cfg config.RedisConfig, log *zap.Logger) (Limiter, error) {
	if cfg.URL == "" {
		return AllowAll{}, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	window := time.Duration(cfg.ThrottleWindowSeconds) * time.Second
	return NewRedisLimiter(redis.NewClient(opts), cfg.ThrottleLimit, window, log), nil
}

// RedisLimiter is a fixed window counter: at most limit calls per key per window.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	log    *zap.Logger
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, log *zap.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, log: log}
}

// Allow fails open: a Redis outage never blocks users, it is only logged.
// The window is created and the counter bumped in one MULTI/EXEC, so a key
// can never be left counting without an expiry.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "carenest:throttle:" + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, redisKey, 0, l.window)
		incr = pipe.Incr(ctx, redisKey)
		return nil
	})
	if err != nil {
		l.log.Warn("throttle unavailable, allowing request", zap.String("key", key), zap.Error(err))
		return true, nil
	}

	return incr.Val() <= int64(l.limit), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// AllowAll never throttles.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, string) (bool, error) { return true, nil }

func (AllowAll) Close() error { return nil }

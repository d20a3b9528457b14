package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"stride/internal/observability"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the shared-store variant of the sliding window for
// multi-instance deployments: attempts live in a Redis sorted set keyed by
// (action, user), scored by unix-nano timestamp, so every instance sees the
// same window.
type RedisLimiter struct {
	rdb   *redis.Client
	rules map[string]Rule
	now   func() time.Time
}

// NewRedisLimiter returns a RedisLimiter over the given client.
func NewRedisLimiter(rdb *redis.Client, rules map[string]Rule, opts ...RedisOption) *RedisLimiter {
	l := &RedisLimiter{
		rdb:   rdb,
		rules: rules,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RedisOption configures a RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithRedisClock overrides the limiter's clock.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(l *RedisLimiter) {
		l.now = now
	}
}

// CheckAndRecord admits or denies one attempt. Errors from the store fail
// open: the caller's action proceeds rather than blocking users on a cache
// outage.
func (l *RedisLimiter) CheckAndRecord(ctx context.Context, userID uint, action string) (Result, error) {
	rule, ok := l.rules[action]
	if !ok || rule.MaxActions <= 0 {
		return Result{Allowed: true}, nil
	}

	key := fmt.Sprintf("rl:%s:%d", action, userID)
	now := l.now()
	cutoff := now.Add(-rule.Window)

	// Age out old attempts, then count what's left in the window.
	if err := l.rdb.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("zremrangebyscore").Inc()
		return Result{Allowed: true}, err
	}

	count, err := l.rdb.ZCard(ctx, key).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("zcard").Inc()
		return Result{Allowed: true}, err
	}

	if count >= int64(rule.MaxActions) {
		oldest, err := l.rdb.ZRangeWithScores(ctx, key, 0, 0).Result()
		retry := rule.Window
		if err == nil && len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			retry = oldestAt.Add(rule.Window).Sub(now)
		}
		if retry < rule.Cooldown {
			retry = rule.Cooldown
		}
		observability.RateLimitDenials.WithLabelValues(action).Inc()
		return Result{Allowed: false, RetryAfter: retry}, nil
	}

	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: strconv.FormatInt(now.UnixNano(), 10)})
	pipe.Expire(ctx, key, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisErrors.WithLabelValues("zadd").Inc()
		return Result{Allowed: true}, err
	}

	return Result{Allowed: true, Remaining: rule.MaxActions - int(count) - 1}, nil
}

// Admit implements Admitter. Store errors are logged and fail open.
func (l *RedisLimiter) Admit(ctx context.Context, userID uint, action string) Result {
	res, err := l.CheckAndRecord(ctx, userID, action)
	if err != nil {
		slog.WarnContext(ctx, "rate limiter store error, admitting",
			"action", action, "user_id", userID, "err", err)
	}
	return res
}

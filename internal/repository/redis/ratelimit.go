package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "gate:rl:"

// RateLimiter enforces a sliding-window request limit per key. Each request
// is recorded as a timestamped member in a sorted set, so the window moves
// continuously instead of resetting on minute boundaries.
type RateLimiter struct {
	client *Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing requestsPerMinute plus burst
// requests within any rolling one-minute window.
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  requestsPerMinute + burst,
		window: time.Minute,
	}
}

// Allow records a request under key and reports whether it fits in the
// window. Returns (allowed, remaining, resetTime, error). resetTime is when
// the oldest request in the window falls out of it.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	fullKey := rateLimitPrefix + key
	now := time.Now()
	cutoff := now.Add(-r.window)

	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	pipe := r.client.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10))
	pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, fullKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, fullKey, 0, 0)
	pipe.Expire(ctx, fullKey, r.window)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := int(countCmd.Val())
	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}

	reset := now.Add(r.window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		reset = time.Unix(0, int64(oldest[0].Score)).Add(r.window)
	}

	if count > r.limit {
		// Rejected requests do not count against the window
		r.client.rdb.ZRem(ctx, fullKey, member)
		return false, remaining, reset, nil
	}

	return true, remaining, reset, nil
}

// Reset clears the recorded requests for a key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.rdb.Del(ctx, rateLimitPrefix+key).Err()
}

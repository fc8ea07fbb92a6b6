package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements a sliding window limit shared by every API replica
// ⭐ SSOT: 분산 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // client identity, e.g. remote IP
	Limit  int           // maximum requests per window
	Window time.Duration
}

// slidingWindow removes expired entries, then admits the request if under the limit
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, ARGV[5])
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`)

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether limits are enforced through Redis
func (r *RateLimiter) Enabled() bool {
	return r.client.Enabled()
}

// Allow checks if a request is allowed under the rate limit.
// Returns (allowed, remaining, error); a disabled client allows everything.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now()
	nowMs := now.UnixMilli()
	windowStart := nowMs - cfg.Window.Milliseconds()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		nowMs,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
		now.UnixNano(), // member must be unique within the same millisecond
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed := result[0].(int64) == 1
	remaining := int(result[1].(int64))

	return allowed, remaining, nil
}

// APIRateLimit builds the per-client limit for the report API
func APIRateLimit(clientKey string, perSecond float64) RateLimitConfig {
	limit := int(perSecond)
	if limit < 1 {
		limit = 1
	}
	return RateLimitConfig{
		Key:    "api:" + clientKey,
		Limit:  limit,
		Window: time.Second,
	}
}

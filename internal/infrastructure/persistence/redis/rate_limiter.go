package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// slidingWindowScript 清理窗口外记录、计数并在未超限时记录本次请求，整体原子执行
// 返回 {allowed, count, retry_after_ms}
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local retry = window
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	return {0, count, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window * 2)
return {1, count + 1, 0}
`)

// Decision 一次限流判定
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter 滑动窗口限流器，多实例共享计数
type RateLimiter struct {
	client *Client
	prefix string
	now    func() time.Time
}

// NewRateLimiter 创建限流器，key 统一加 prefix
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, now: time.Now}
}

// Allow 检查并记录一次请求（滑动窗口算法）
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	key = l.prefix + key

	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_ms", window.Milliseconds()),
	)
	defer span.End()

	// 同一毫秒内的并发请求需要不同的 member
	res, err := slidingWindowScript.Run(ctx, l.client.rdb, []string{key},
		l.now().UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		span.RecordError(err)
		return Decision{}, err
	}
	if len(res) != 3 {
		err = fmt.Errorf("unexpected rate limit reply: %v", res)
		span.RecordError(err)
		return Decision{}, err
	}

	allowed := res[0] == 1
	count := int(res[1])
	span.SetAttributes(
		attribute.Int("ratelimit.current_count", count),
		attribute.Bool("ratelimit.allowed", allowed),
	)

	if !allowed {
		retry := time.Duration(res[2]) * time.Millisecond
		if retry <= 0 {
			retry = window
		}
		return Decision{Limit: limit, RetryAfter: retry}, nil
	}
	return Decision{Allowed: true, Limit: limit, Remaining: max(limit-count, 0)}, nil
}

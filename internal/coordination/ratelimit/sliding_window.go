package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes timestamps older than the window, counts the
// survivors, and records the new request only when under the limit. Rejected
// requests also learn the oldest surviving timestamp for the retry hint.
// ARGV: window_ms, min_score, limit, now_score, member.
var slidingWindowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
if count < tonumber(ARGV[3]) then
  redis.call('ZADD', KEYS[1], ARGV[4], ARGV[5])
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  return {1, count + 1, '0'}
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {0, count, oldest[2]}
`)

// SlidingWindowLimiter keeps a time-ordered set of request timestamps per
// principal and admits while fewer than limit fall inside the trailing
// window.
type SlidingWindowLimiter struct {
	client redis.UniversalClient
	cfg    Config

	now func() time.Time // for testing
}

// NewSlidingWindowLimiter creates a Redis-backed sliding-window limiter.
func NewSlidingWindowLimiter(client redis.UniversalClient, cfg Config) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{client: client, cfg: cfg.normalized(), now: time.Now}
}

func (l *SlidingWindowLimiter) Check(ctx context.Context, principalKey string) (*Decision, error) {
	now := l.now()
	windowMs := l.cfg.Window.Milliseconds()
	nowMs := now.UnixMilli()

	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{"rl:sliding:" + principalKey},
		windowMs, nowMs-windowMs, l.cfg.Limit, nowMs, uuid.New().String(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit check: unexpected script reply %v", res)
	}

	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)

	d := &Decision{
		Allowed:   allowed == 1,
		Limit:     l.cfg.Limit,
		Remaining: remaining(l.cfg.Limit, int(count)),
		ResetAt:   now.Add(l.cfg.Window),
	}
	if !d.Allowed {
		// The oldest tracked request ages out of the window first; that is
		// the earliest moment a slot frees up.
		oldestMs := parseScore(res[2])
		d.RetryAfter = time.Duration(oldestMs+windowMs-nowMs) * time.Millisecond
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Millisecond
		}
		d.ResetAt = time.UnixMilli(oldestMs + windowMs)
	}
	return d, nil
}

func parseScore(v any) int64 {
	switch s := v.(type) {
	case string:
		ms, _ := strconv.ParseFloat(s, 64)
		return int64(ms)
	case int64:
		return s
	default:
		return 0
	}
}

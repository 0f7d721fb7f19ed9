package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter and sets its expiry on
// first use, in one round trip.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter buckets requests by floor(now / window) and applies an
// atomic increment-and-compare against the limit.
type FixedWindowLimiter struct {
	client redis.UniversalClient
	cfg    Config

	now func() time.Time // for testing
}

// NewFixedWindowLimiter creates a Redis-backed fixed-window limiter.
func NewFixedWindowLimiter(client redis.UniversalClient, cfg Config) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: client, cfg: cfg.normalized(), now: time.Now}
}

func (l *FixedWindowLimiter) Check(ctx context.Context, principalKey string) (*Decision, error) {
	now := l.now()
	windowStart := now.UnixMilli() / l.cfg.Window.Milliseconds()
	resetAt := time.UnixMilli((windowStart + 1) * l.cfg.Window.Milliseconds())

	key := "rl:fixed:" + principalKey + ":" + strconv.FormatInt(windowStart, 10)
	count, err := fixedWindowScript.Run(ctx, l.client, []string{key}, l.cfg.Window.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	d := &Decision{
		Allowed:   count <= l.cfg.Limit,
		Limit:     l.cfg.Limit,
		Remaining: remaining(l.cfg.Limit, count),
		ResetAt:   resetAt,
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(now)
	}
	return d, nil
}

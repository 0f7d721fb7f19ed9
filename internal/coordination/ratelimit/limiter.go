// Package ratelimit bounds request admission per principal. Two algorithms
// are provided, fixed window and sliding window, each backed by either the
// shared Redis store (multi-worker deployments) or process memory (tests,
// single node). Every admission check that succeeds records the consumption
// atomically, so a concurrent second caller observes the updated count.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int           // never negative
	ResetAt    time.Time     // when the current window ends
	RetryAfter time.Duration // positive only when the request was rejected
}

// Limiter admits or rejects a request for the given principal key.
type Limiter interface {
	Check(ctx context.Context, principalKey string) (*Decision, error)
}

// Config holds the per-principal admission bound.
type Config struct {
	Limit  int           // admitted requests per window
	Window time.Duration // window length
}

func (c Config) normalized() Config {
	if c.Limit <= 0 {
		c.Limit = 100
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	return c
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}

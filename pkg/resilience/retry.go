package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy applies exponential backoff with jitter around an operation.
// Delay for attempt a is min(BaseDelay * 2^a, MaxDelay) scaled by a uniform
// jitter factor in [0.5, 1.0].
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	rand  *rand.Rand
	sleep func(context.Context, time.Duration) error
}

// DefaultRetryPolicy returns sensible defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.sleep == nil {
		p.sleep = sleepCtx
	}
	return p
}

// Do invokes op up to MaxAttempts times, backing off between attempts. Only
// errors classified retryable by isRetryable trigger another attempt;
// anything else propagates immediately. On exhaustion the last error is
// returned unchanged so the caller can still inspect the original cause.
//
// The operation itself must re-check any circuit breaker on every attempt;
// wrapping breaker.Execute inside op gives that for free, and ErrCircuitOpen
// must be classified non-retryable so an opening circuit stops the loop.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error, isRetryable func(error) bool) error {
	p = p.normalized()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.delay(attempt-1)); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if isRetryable == nil || !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// delay computes the backoff before retrying after the given attempt index.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}

	// Uniform jitter in [0.5, 1.0] to decorrelate concurrent retriers.
	jitter := 0.5 + 0.5*p.randFloat()
	return time.Duration(float64(d) * jitter)
}

func (p RetryPolicy) randFloat() float64 {
	if p.rand != nil {
		return p.rand.Float64()
	}
	return rand.Float64()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package resilience

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(maxAttempts int, base, max time.Duration) (RetryPolicy, *[]time.Duration) {
	delays := &[]time.Duration{}
	p := RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   base,
		MaxDelay:    max,
		rand:        rand.New(rand.NewSource(1)),
		sleep: func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		},
	}
	return p, delays
}

func retryAll(error) bool { return true }

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	p, _ := newTestPolicy(4, 10*time.Millisecond, time.Second)

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	}, retryAll)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryReturnsLastErrorUnwrapped(t *testing.T) {
	p, _ := newTestPolicy(3, time.Millisecond, time.Second)

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	}, retryAll)

	assert.Equal(t, 3, calls)
	// The original error comes back as-is, not wrapped.
	assert.Equal(t, errBoom, err)
}

func TestRetryNonRetryablePropagatesImmediately(t *testing.T) {
	p, delays := newTestPolicy(5, time.Millisecond, time.Second)
	permanent := errors.New("validation failed")

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	}, func(err error) bool { return !errors.Is(err, permanent) })

	assert.Equal(t, 1, calls)
	assert.Equal(t, permanent, err)
	assert.Empty(t, *delays)
}

func TestRetryBackoffBounds(t *testing.T) {
	p, delays := newTestPolicy(8, 100*time.Millisecond, 800*time.Millisecond)

	_ = p.Do(context.Background(), func(context.Context) error { return errBoom }, retryAll)

	require.Len(t, *delays, 7)
	for i, d := range *delays {
		exp := 100 * time.Millisecond << i
		if exp > 800*time.Millisecond {
			exp = 800 * time.Millisecond
		}
		// Jitter keeps each delay within [0.5, 1.0] of the exponential value.
		assert.GreaterOrEqual(t, d, exp/2, "attempt %d", i)
		assert.LessOrEqual(t, d, exp, "attempt %d", i)
	}
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errBoom
	}, retryAll)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryComposesWithBreaker(t *testing.T) {
	// The breaker is re-checked on every attempt; once it opens mid-loop the
	// retry stops instead of busy-retrying against an open circuit.
	b := NewBreaker("filegen", BreakerSettings{FailureThreshold: 2, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 1})
	p, _ := newTestPolicy(10, time.Millisecond, time.Second)

	depCalls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		return b.Execute(func() error {
			depCalls++
			return errBoom
		})
	}, func(err error) bool { return !errors.Is(err, ErrCircuitOpen) })

	assert.ErrorIs(t, err, ErrCircuitOpen)
	// Two failures open the breaker; the third attempt short-circuits.
	assert.Equal(t, 2, depCalls)
}

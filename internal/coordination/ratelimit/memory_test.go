package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowBoundedness(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryFixedWindowLimiter(Config{Limit: 5, Window: time.Minute})
	l.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		d, err := l.Check(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 5-(i+1), d.Remaining)
	}

	// The (limit+1)-th request in the window is rejected with a positive
	// retry hint.
	d, err := l.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	// A different principal is unaffected.
	d, err = l.Check(context.Background(), "user-2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// A new window admits again.
	current = current.Add(time.Minute)
	d, err = l.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowConcurrentNoLostUpdates(t *testing.T) {
	l := NewMemoryFixedWindowLimiter(Config{Limit: 50, Window: time.Minute})

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Check(context.Background(), "user-1")
			require.NoError(t, err)
			if d.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	// The admitted count never exceeds the limit, no matter the interleave.
	assert.Equal(t, int32(50), admitted.Load())
}

func TestSlidingWindowBoundedness(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemorySlidingWindowLimiter(Config{Limit: 3, Window: time.Minute})
	l.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		d, err := l.Check(context.Background(), "user-1")
		require.NoError(t, err)
		require.True(t, d.Allowed)
		current = current.Add(10 * time.Second)
	}

	d, err := l.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	// The oldest entry is 30s old; a slot frees when it ages past 60s.
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	// Once the oldest entry slides out, admission resumes.
	current = current.Add(31 * time.Second)
	d, err = l.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestSlidingWindowRemainingNeverNegative(t *testing.T) {
	l := NewMemorySlidingWindowLimiter(Config{Limit: 2, Window: time.Minute})

	for i := 0; i < 10; i++ {
		d, err := l.Check(context.Background(), "user-1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d.Remaining, 0)
	}
}

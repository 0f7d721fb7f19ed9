package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryFixedWindowLimiter is the process-local fixed-window limiter used by
// tests and single-node deployments.
type MemoryFixedWindowLimiter struct {
	cfg Config

	mu      sync.Mutex
	windows map[string]*fixedWindow

	now func() time.Time // for testing
}

type fixedWindow struct {
	start int64
	count int
}

// NewMemoryFixedWindowLimiter creates an in-memory fixed-window limiter.
func NewMemoryFixedWindowLimiter(cfg Config) *MemoryFixedWindowLimiter {
	return &MemoryFixedWindowLimiter{
		cfg:     cfg.normalized(),
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

func (l *MemoryFixedWindowLimiter) Check(_ context.Context, principalKey string) (*Decision, error) {
	now := l.now()
	windowStart := now.UnixMilli() / l.cfg.Window.Milliseconds()
	resetAt := time.UnixMilli((windowStart + 1) * l.cfg.Window.Milliseconds())

	l.mu.Lock()
	w, ok := l.windows[principalKey]
	if !ok || w.start != windowStart {
		w = &fixedWindow{start: windowStart}
		l.windows[principalKey] = w
	}
	w.count++
	count := w.count
	l.mu.Unlock()

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

// MemorySlidingWindowLimiter is the process-local sliding-window limiter.
type MemorySlidingWindowLimiter struct {
	cfg Config

	mu         sync.Mutex
	timestamps map[string][]time.Time

	now func() time.Time // for testing
}

// NewMemorySlidingWindowLimiter creates an in-memory sliding-window limiter.
func NewMemorySlidingWindowLimiter(cfg Config) *MemorySlidingWindowLimiter {
	return &MemorySlidingWindowLimiter{
		cfg:        cfg.normalized(),
		timestamps: make(map[string][]time.Time),
		now:        time.Now,
	}
}

func (l *MemorySlidingWindowLimiter) Check(_ context.Context, principalKey string) (*Decision, error) {
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.timestamps[principalKey][:0]
	for _, ts := range l.timestamps[principalKey] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) < l.cfg.Limit {
		kept = append(kept, now)
		l.timestamps[principalKey] = kept
		return &Decision{
			Allowed:   true,
			Limit:     l.cfg.Limit,
			Remaining: remaining(l.cfg.Limit, len(kept)),
			ResetAt:   now.Add(l.cfg.Window),
		}, nil
	}

	l.timestamps[principalKey] = kept
	oldest := kept[0]
	retryAfter := oldest.Add(l.cfg.Window).Sub(now)
	if retryAfter <= 0 {
		retryAfter = time.Millisecond
	}
	return &Decision{
		Allowed:    false,
		Limit:      l.cfg.Limit,
		Remaining:  0,
		ResetAt:    oldest.Add(l.cfg.Window),
		RetryAfter: retryAfter,
	}, nil
}

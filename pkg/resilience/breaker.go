// Package resilience provides circuit breaking and retry with backoff for
// calls to unreliable downstream dependencies.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting
// calls. Callers should back off rather than retry immediately.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the breaker state machine position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// BreakerSettings configures a circuit breaker's thresholds.
type BreakerSettings struct {
	FailureThreshold int           // consecutive failures in CLOSED before opening
	RecoveryTimeout  time.Duration // how long OPEN lasts before probing
	HalfOpenMaxCalls int           // probe budget while HALF_OPEN
}

// DefaultBreakerSettings returns sensible defaults
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

func (s BreakerSettings) normalized() BreakerSettings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.RecoveryTimeout <= 0 {
		s.RecoveryTimeout = 30 * time.Second
	}
	if s.HalfOpenMaxCalls <= 0 {
		s.HalfOpenMaxCalls = 3
	}
	return s
}

// Breaker guards calls to a single named dependency. Consecutive failures in
// CLOSED open the circuit; after RecoveryTimeout a bounded number of probes
// is let through in HALF_OPEN. The probe budget is consumed under the lock,
// so concurrent callers can never exceed HalfOpenMaxCalls in-flight probes.
type Breaker struct {
	name     string
	settings BreakerSettings

	mu                sync.Mutex
	state             State
	failureCount      int
	lastFailureAt     time.Time
	halfOpenProbes    int // probes currently admitted
	halfOpenSuccesses int

	now func() time.Time // for testing
}

// NewBreaker creates a circuit breaker for the named dependency.
func NewBreaker(name string, settings BreakerSettings) *Breaker {
	return &Breaker{
		name:     name,
		settings: settings.normalized(),
		state:    StateClosed,
		now:      time.Now,
	}
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, applying the OPEN -> HALF_OPEN timeout
// transition if it is due.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionHalfOpen()
	return b.state
}

// Execute runs fn if the breaker admits the call, then records the outcome.
// Returns ErrCircuitOpen without calling fn when the circuit is open or the
// half-open probe budget is exhausted.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTransitionHalfOpen()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		return false
	case StateHalfOpen:
		if b.halfOpenProbes >= b.settings.HalfOpenMaxCalls {
			return false
		}
		b.halfOpenProbes++
		return true
	}
	return false
}

// maybeTransitionHalfOpen must be called with b.mu held.
func (b *Breaker) maybeTransitionHalfOpen() {
	if b.state == StateOpen && b.now().Sub(b.lastFailureAt) >= b.settings.RecoveryTimeout {
		b.state = StateHalfOpen
		b.halfOpenProbes = 0
		b.halfOpenSuccesses = 0
	}
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.settings.HalfOpenMaxCalls {
			b.state = StateClosed
			b.failureCount = 0
		}
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount++
		b.lastFailureAt = b.now()
		if b.failureCount >= b.settings.FailureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		// A single failed probe reopens the circuit immediately.
		b.state = StateOpen
		b.lastFailureAt = b.now()
	case StateOpen:
		b.lastFailureAt = b.now()
	}
}

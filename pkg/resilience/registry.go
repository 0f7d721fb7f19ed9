package resilience

import "sync"

// Registry owns the circuit breakers for all named dependencies. It is an
// explicit object injected into callers, never a package-level singleton, so
// tests can instantiate isolated instances.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	settings BreakerSettings
}

// NewRegistry creates a registry that builds breakers with the given
// settings on first use of each dependency name.
func NewRegistry(settings BreakerSettings) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		settings: settings.normalized(),
	}
}

// Get returns the breaker for the named dependency, creating it if needed.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, r.settings)
	r.breakers[name] = b
	return b
}

// States reports the current state of every registered breaker, keyed by
// dependency name. Used by the readiness endpoint.
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	states := make(map[string]State, len(breakers))
	for _, b := range breakers {
		states[b.Name()] = b.State()
	}
	return states
}

package circuitbreaker

import (
	"sync"
)

// Registry holds one breaker per upstream service name. Settings come
// from the per-service overrides map, falling back to the defaults.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*CircuitBreaker
	defaults  Settings
	overrides map[string]Settings
}

func NewRegistry(defaults Settings, overrides map[string]Settings) *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		defaults:  defaults,
		overrides: overrides,
	}
}

func (r *Registry) Get(service string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[service]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[service]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.settingsFor(service))
	r.breakers[service] = cb
	return cb
}

func (r *Registry) settingsFor(service string) Settings {
	if s, ok := r.overrides[service]; ok {
		return s
	}
	return r.defaults
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for service, cb := range r.breakers {
		stats[service] = cb.State()
	}
	return stats
}

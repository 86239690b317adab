package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking requests
	StateHalfOpen              // Trial period after cool-down
)

// Settings holds the per-service breaker configuration. Services without
// an explicit entry in the registry fall back to the default settings.
type Settings struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenTimeout  time.Duration
}

type CircuitBreaker struct {
	mutex         sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	halfOpenSince time.Time
	settings      Settings
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	return &CircuitBreaker{
		state:    StateClosed,
		settings: settings,
	}
}

// Allow reports whether a request may be attempted against the service.
// The OPEN -> HALF_OPEN transition happens lazily here once the reset
// timeout has elapsed; no request is admitted through an open breaker
// before its cool-down is over.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastFailure) >= cb.settings.ResetTimeout {
			cb.state = StateHalfOpen
			cb.halfOpenSince = time.Now()
			return true
		}

		return false
	case StateHalfOpen:
		// A trial that outlives its window without a recorded outcome
		// counts as recovered.
		if cb.settings.HalfOpenTimeout > 0 && time.Since(cb.halfOpenSince) >= cb.settings.HalfOpenTimeout {
			cb.state = StateClosed
			cb.failures = 0
		}
		return true
	default:
		return true
	}
}

// RecordFailure registers a qualifying failure outcome. In HALF_OPEN a
// single failure reopens the breaker with a fresh cool-down and a reset
// failure counter.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.lastFailure = time.Now()

	if cb.state == StateHalfOpen {
		cb.state = StateOpen
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.failures >= cb.settings.FailureThreshold {
		cb.state = StateOpen
	}
}

// RecordSuccess registers a success outcome, closing the breaker and
// resetting the consecutive-failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	cb.state = StateClosed
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Failures() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failures
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

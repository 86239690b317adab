// Package circuitbreaker isolates failing upstream services.
//
// A circuit breaker prevents hammering an upstream that is already
// failing. It has three states:
//
//   - CLOSED: Normal operation, requests pass through
//   - OPEN: Upstream presumed failing, requests rejected locally
//   - HALF-OPEN: Cool-down elapsed, next request is a trial
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(defaults, overrides)
//	cb := registry.Get("weather")
//	if cb.Allow() {
//	    // Make request...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker

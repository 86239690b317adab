// Package retry executes upstream operations under the circuit breaker
// with bounded exponential backoff and per-attempt timeout racing.
package retry

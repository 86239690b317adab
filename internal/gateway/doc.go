// Package gateway composes the guarded request pipeline: validation,
// anti-forgery, admission control, and the retrying breaker-aware
// upstream invocation, with telemetry wrapped around the whole chain.
package gateway

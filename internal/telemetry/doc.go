// Package telemetry accounts for wall-clock time and process resources
// per request, correlated by trace id.
//
// The Monitor middleware wraps the whole request chain: it snapshots
// resident memory and CPU time at entry and exit, stamps the timing
// headers on the response, logs threshold breaches (slow request, high
// memory delta, high CPU time) without failing the request, and emits a
// finalized Sample on every exit path.
//
// The Collector aggregates samples off the request path through a
// buffered channel and a dedicated goroutine, keeps them in a bounded
// ring with a retention window, and serves per-route statistics
// (request counts, status codes, avg/p50/p95/p99 durations) as JSON.
package telemetry

// Package ratelimit implements fixed-window admission control per
// client identity.
//
// The counter lives behind the CounterStore interface so the gateway
// can run with an in-process map (single instance) or Redis
// (multi-instance) behind the same contract. Store unavailability
// degrades per the configured fail-open/fail-closed policy instead of
// surfacing to the client.
package ratelimit

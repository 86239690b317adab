// Package config loads and validates the gateway configuration.
//
// Configuration is read from config.yaml (searched in ./config and the
// working directory) with environment variable overrides, then validated
// section by section. Per-service circuit breaker settings live under
// breaker.services keyed by upstream service name, with breaker.default
// as the fallback entry.
package config

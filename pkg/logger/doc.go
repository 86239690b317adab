// Package logger constructs the slog logger used across the gateway.
package logger

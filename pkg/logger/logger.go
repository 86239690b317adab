package logger

import (
	"log/slog"
	"os"
	"strings"
)

const serviceName = "weather-gateway"

// New builds the gateway logger. Production and staging environments get
// JSON output for log shipping; dev gets the text handler.
func New(lvl string, addSource bool, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(lvl),
		AddSource: addSource,
	}

	var handler slog.Handler
	switch strings.ToLower(environment) {
	case "prod", "staging":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("environment", environment),
	)
}

// WithRequest returns a logger bound to one request's correlation ids,
// so every line emitted by downstream stages carries them.
func WithRequest(log *slog.Logger, requestID, traceID string) *slog.Logger {
	return log.With(
		slog.String("request_id", requestID),
		slog.String("trace_id", traceID),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

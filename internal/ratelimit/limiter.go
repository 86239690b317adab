package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Degraded   bool // counter store unreachable, policy applied blind
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter bounds request rate per client identity using a fixed window
// over a shared counter store.
type Limiter struct {
	store    CounterStore
	limit    int
	window   time.Duration
	failOpen bool
	logger   *slog.Logger
}

func NewLimiter(store CounterStore, limit int, window time.Duration, failOpen bool, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:    store,
		limit:    limit,
		window:   window,
		failOpen: failOpen,
		logger:   logger,
	}
}

func (l *Limiter) Limit() int            { return l.limit }
func (l *Limiter) Window() time.Duration { return l.window }

// Admit decides whether a request from clientID may proceed. The
// increment-and-compare runs as a single atomic store operation, so two
// concurrent requests near the ceiling cannot both be admitted past it.
// If the store is unreachable, the configured degradation policy
// applies: fail-open admits, fail-closed throttles for one window.
func (l *Limiter) Admit(ctx context.Context, clientID string) Decision {
	count, remaining, err := l.store.Incr(ctx, clientID, l.window)
	if err != nil {
		l.logger.Error("rate limit store unreachable, applying degradation policy",
			slog.String("client", clientID),
			slog.Bool("fail_open", l.failOpen),
			slog.Any("err", err))

		return Decision{
			Allowed:    l.failOpen,
			Degraded:   true,
			Limit:      l.limit,
			Remaining:  l.limit - 1,
			ResetAt:    time.Now().Add(l.window),
			RetryAfter: l.window,
		}
	}

	resetAt := time.Now().Add(remaining)

	if count > int64(l.limit) {
		l.logger.Warn("rate limit exceeded",
			slog.String("client", clientID),
			slog.Int64("count", count),
			slog.Int("limit", l.limit))

		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: remaining,
		}
	}

	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - int(count),
		ResetAt:   resetAt,
	}
}

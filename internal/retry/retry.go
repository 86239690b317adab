package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/angeloszaimis/weather-gateway/internal/apperr"
	"github.com/angeloszaimis/weather-gateway/internal/circuitbreaker"
)

// Operation is one upstream invocation. The pipeline does not know or
// care what the result represents.
type Operation func(ctx context.Context) (interface{}, error)

type Config struct {
	MaxRetries     int
	InitialDelay   time.Duration
	BackoffFactor  float64
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

// ExhaustedError surfaces the last failure once the attempt ceiling is
// spent, along with how many attempts were made.
type ExhaustedError struct {
	Last     *apperr.Error
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Invoker executes guarded upstream operations with bounded exponential
// backoff, per-attempt timeout racing, and circuit breaker feedback.
type Invoker struct {
	breakers *circuitbreaker.Registry
	cfg      Config
	logger   *slog.Logger
}

func NewInvoker(breakers *circuitbreaker.Registry, cfg Config, logger *slog.Logger) *Invoker {
	return &Invoker{
		breakers: breakers,
		cfg:      cfg,
		logger:   logger,
	}
}

// Backoff computes the delay before the given zero-based retry attempt,
// capped at MaxDelay.
func Backoff(cfg Config, attempt int) time.Duration {
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt)))
	if delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}

// Invoke runs op against the named service. Breaker rejection
// short-circuits to an EXTERNAL_SERVICE error without consuming an
// attempt or waiting. Only retryable categories are reattempted, and
// only qualifying failures feed the breaker.
func (inv *Invoker) Invoke(ctx context.Context, service string, op Operation) (interface{}, error) {
	cb := inv.breakers.Get(service)
	maxAttempts := inv.cfg.MaxRetries + 1

	var last *apperr.Error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !cb.Allow() {
			inv.logger.Warn("circuit breaker open, rejecting without contacting upstream",
				slog.String("service", service),
				slog.Int("attempt", attempt))

			e := apperr.New(http.StatusServiceUnavailable, "service temporarily unavailable")
			e.Attempt = attempt - 1
			return nil, e
		}

		result, err := inv.attempt(ctx, op)
		if err == nil {
			cb.RecordSuccess()
			return result, nil
		}

		appErr := withAttempt(apperr.FromError(err), attempt)

		if apperr.TripsBreaker(appErr.Category) {
			cb.RecordFailure()
		}

		if !apperr.Retryable(appErr.Category) {
			return nil, appErr
		}

		last = appErr

		if attempt == maxAttempts {
			break
		}

		delay := Backoff(inv.cfg, attempt-1)
		inv.logger.Warn("upstream attempt failed, backing off",
			slog.String("service", service),
			slog.Int("attempt", attempt),
			slog.String("category", string(appErr.Category)),
			slog.Duration("delay", delay))

		if !inv.wait(ctx, delay) {
			break
		}
	}

	attempts := last.Attempt
	return nil, &ExhaustedError{Last: last, Attempts: attempts}
}

// attempt races op against the per-attempt timeout. A timed-out call is
// abandoned; any late result lands in the buffered channel and is
// discarded with the goroutine.
func (inv *Invoker) attempt(ctx context.Context, op Operation) (interface{}, error) {
	type outcome struct {
		result interface{}
		err    error
	}

	ch := make(chan outcome, 1)
	go func() {
		result, err := op(ctx)
		ch <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(inv.cfg.AttemptTimeout)
	defer timer.Stop()

	select {
	case o := <-ch:
		return o.result, o.err
	case <-timer.C:
		return nil, apperr.New(http.StatusGatewayTimeout, "upstream request timed out")
	}
}

func (inv *Invoker) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func withAttempt(e *apperr.Error, attempt int) *apperr.Error {
	// Error records are immutable once surfaced; copy before stamping.
	copied := *e
	copied.Attempt = attempt
	return &copied
}

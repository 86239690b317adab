package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angeloszaimis/weather-gateway/config"
	"github.com/angeloszaimis/weather-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/weather-gateway/internal/gateway"
	"github.com/angeloszaimis/weather-gateway/internal/httpserver"
	"github.com/angeloszaimis/weather-gateway/internal/ratelimit"
	"github.com/angeloszaimis/weather-gateway/internal/retry"
	"github.com/angeloszaimis/weather-gateway/internal/telemetry"
	"github.com/angeloszaimis/weather-gateway/internal/upstream"
	"github.com/angeloszaimis/weather-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	if cfg.Upstream.AppID == "" {
		log.Error("upstream.app_id is not set")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	limiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize rate limiter", slog.Any("err", err))
		os.Exit(1)
	}

	breakers, err := newBreakerRegistry(cfg)
	if err != nil {
		log.Error("Failed to initialize circuit breakers", slog.Any("err", err))
		os.Exit(1)
	}

	retryCfg, err := newRetryConfig(cfg)
	if err != nil {
		log.Error("Failed to initialize retry policy", slog.Any("err", err))
		os.Exit(1)
	}
	invoker := retry.NewInvoker(breakers, retryCfg, log)

	upstreamTimeout, err := time.ParseDuration(cfg.Upstream.Timeout)
	if err != nil {
		log.Error("Invalid upstream timeout", slog.Any("err", err))
		os.Exit(1)
	}
	client := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.AppID,
		cfg.Upstream.DefaultCity, upstreamTimeout, log)

	probeInterval, err := time.ParseDuration(cfg.Upstream.HealthCheckInterval)
	if err != nil {
		log.Error("Invalid health check interval", slog.Any("err", err))
		os.Exit(1)
	}
	probe := upstream.NewProbe(cfg.Upstream.BaseURL, probeInterval, log)
	go probe.Run(ctx)

	collector, monitor, err := newTelemetry(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize telemetry", slog.Any("err", err))
		os.Exit(1)
	}

	g := gateway.New(log, client, invoker, probe, breakers, cfg.Production())
	router := gateway.Router(g, monitor, limiter, collector, log, cfg.Production())

	srv, err := httpserver.New(cfg.Server.Address, router)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Weather gateway listening",
		slog.String("address", cfg.Server.Address),
		slog.String("environment", cfg.Server.Environment))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting gateway", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func newLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ratelimit.Limiter, error) {
	window, err := time.ParseDuration(cfg.RateLimit.Window)
	if err != nil {
		return nil, err
	}

	var store ratelimit.CounterStore

	switch cfg.RateLimit.Store {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RateLimit.RedisAddr,
		})
		store = ratelimit.NewRedisStore(rdb)

	default:
		memStore := ratelimit.NewMemoryStore()
		memStore.StartJanitor(ctx, time.Minute)
		store = memStore
	}

	return ratelimit.NewLimiter(store, cfg.RateLimit.MaxRequests, window, cfg.RateLimit.FailOpen, log), nil
}

func newBreakerRegistry(cfg *config.Config) (*circuitbreaker.Registry, error) {
	defaults, err := breakerSettings(cfg.Breaker.Default)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]circuitbreaker.Settings, len(cfg.Breaker.Services))
	for service, raw := range cfg.Breaker.Services {
		settings, err := breakerSettings(raw)
		if err != nil {
			return nil, err
		}
		overrides[service] = settings
	}

	return circuitbreaker.NewRegistry(defaults, overrides), nil
}

func breakerSettings(raw config.BreakerSettings) (circuitbreaker.Settings, error) {
	resetTimeout, err := time.ParseDuration(raw.ResetTimeout)
	if err != nil {
		return circuitbreaker.Settings{}, err
	}

	halfOpenTimeout, err := time.ParseDuration(raw.HalfOpenTimeout)
	if err != nil {
		return circuitbreaker.Settings{}, err
	}

	return circuitbreaker.Settings{
		FailureThreshold: raw.FailureThreshold,
		ResetTimeout:     resetTimeout,
		HalfOpenTimeout:  halfOpenTimeout,
	}, nil
}

func newRetryConfig(cfg *config.Config) (retry.Config, error) {
	initialDelay, err := time.ParseDuration(cfg.Retry.InitialDelay)
	if err != nil {
		return retry.Config{}, err
	}

	maxDelay, err := time.ParseDuration(cfg.Retry.MaxDelay)
	if err != nil {
		return retry.Config{}, err
	}

	attemptTimeout, err := time.ParseDuration(cfg.Retry.AttemptTimeout)
	if err != nil {
		return retry.Config{}, err
	}

	return retry.Config{
		MaxRetries:     cfg.Retry.MaxRetries,
		InitialDelay:   initialDelay,
		BackoffFactor:  cfg.Retry.BackoffFactor,
		MaxDelay:       maxDelay,
		AttemptTimeout: attemptTimeout,
	}, nil
}

func newTelemetry(ctx context.Context, cfg *config.Config, log *slog.Logger) (*telemetry.Collector, *telemetry.Monitor, error) {
	retention, err := time.ParseDuration(cfg.Telemetry.Retention)
	if err != nil {
		return nil, nil, err
	}

	slowRequest, err := time.ParseDuration(cfg.Telemetry.SlowRequest)
	if err != nil {
		return nil, nil, err
	}

	cpuTime, err := time.ParseDuration(cfg.Telemetry.CPUTime)
	if err != nil {
		return nil, nil, err
	}

	collector := telemetry.NewCollector(cfg.Telemetry.BufferSize, retention, log)
	collector.Start(ctx)

	monitor := telemetry.NewMonitor(collector, telemetry.Thresholds{
		SlowRequest: slowRequest,
		MemoryDelta: int64(cfg.Telemetry.MemoryDeltaMB) * 1024 * 1024,
		CPUTime:     cpuTime,
	}, log)

	return collector, monitor, nil
}

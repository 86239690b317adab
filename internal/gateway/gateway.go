package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/weather-gateway/internal/apperr"
	"github.com/angeloszaimis/weather-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/weather-gateway/internal/reqctx"
	"github.com/angeloszaimis/weather-gateway/internal/retry"
	"github.com/angeloszaimis/weather-gateway/internal/upstream"
	"github.com/angeloszaimis/weather-gateway/internal/validate"
)

// Service names keyed into the breaker registry.
const (
	ServiceWeather  = "weather"
	ServiceForecast = "forecast"
)

// Gateway holds the route handlers sitting behind the guard chain. By
// the time a handler runs, parameters are validated and sanitized and
// the request has been admitted.
type Gateway struct {
	logger     *slog.Logger
	client     *upstream.Client
	invoker    *retry.Invoker
	probe      *upstream.Probe
	breakers   *circuitbreaker.Registry
	production bool
}

func New(
	logger *slog.Logger,
	client *upstream.Client,
	invoker *retry.Invoker,
	probe *upstream.Probe,
	breakers *circuitbreaker.Registry,
	production bool,
) *Gateway {
	return &Gateway{
		logger:     logger,
		client:     client,
		invoker:    invoker,
		probe:      probe,
		breakers:   breakers,
		production: production,
	}
}

func (g *Gateway) WeatherByCity(w http.ResponseWriter, r *http.Request) {
	params := validate.ParamsFrom(r.Context())

	result, err := g.invoker.Invoke(r.Context(), ServiceWeather, func(ctx context.Context) (interface{}, error) {
		return g.client.WeatherByCity(ctx, params.City)
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	g.writeJSON(w, r, result)
}

func (g *Gateway) WeatherByCoordinates(w http.ResponseWriter, r *http.Request) {
	params := validate.ParamsFrom(r.Context())

	result, err := g.invoker.Invoke(r.Context(), ServiceWeather, func(ctx context.Context) (interface{}, error) {
		return g.client.WeatherByCoordinates(ctx, params.Lon, params.Lat)
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	g.writeJSON(w, r, result)
}

func (g *Gateway) ForecastByCoordinates(w http.ResponseWriter, r *http.Request) {
	params := validate.ParamsFrom(r.Context())

	result, err := g.invoker.Invoke(r.Context(), ServiceForecast, func(ctx context.Context) (interface{}, error) {
		return g.client.ForecastByCoordinates(ctx, params.Lon, params.Lat)
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	g.writeJSON(w, r, result)
}

func (g *Gateway) Forecast(w http.ResponseWriter, r *http.Request) {
	params := validate.ParamsFrom(r.Context())

	result, err := g.invoker.Invoke(r.Context(), ServiceForecast, func(ctx context.Context) (interface{}, error) {
		return g.client.Forecast(ctx, params.City)
	})
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	g.writeJSON(w, r, result)
}

func (g *Gateway) Health(w http.ResponseWriter, r *http.Request) {
	upstreamHealthy := g.probe == nil || g.probe.Healthy()

	status := "ok"
	code := http.StatusOK
	if !upstreamHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	breakers := make(map[string]string)
	for service, state := range g.breakers.Stats() {
		breakers[service] = state.String()
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   status,
		"upstream": upstreamHealthy,
		"breakers": breakers,
	})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, r *http.Request, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		meta := reqctx.From(r.Context())
		g.logger.Error("encoding response failed",
			slog.String("request_id", meta.RequestID),
			slog.Any("error", err))
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	meta := reqctx.From(r.Context())

	var e *apperr.Error

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		e = exhausted.Last
	} else {
		e = apperr.FromError(err)
	}

	stamped := *e
	stamped.RequestID = meta.RequestID

	g.logger.Error("request failed",
		slog.String("request_id", meta.RequestID),
		slog.String("path", r.URL.Path),
		slog.String("category", string(stamped.Category)),
		slog.Int("status", stamped.Status),
		slog.Int("attempt", stamped.Attempt))

	apperr.Write(w, &stamped, g.production)
}

package gateway

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/weather-gateway/internal/ratelimit"
	"github.com/angeloszaimis/weather-gateway/internal/security"
	"github.com/angeloszaimis/weather-gateway/internal/telemetry"
	"github.com/angeloszaimis/weather-gateway/internal/validate"
)

// Router composes the guard chain around the route handlers. The order
// is fixed: telemetry wraps everything, then validation, the
// anti-forgery guard, and admission, so every rejection still produces
// a telemetry sample and carries a request id.
func Router(
	g *Gateway,
	monitor *telemetry.Monitor,
	limiter *ratelimit.Limiter,
	collector *telemetry.Collector,
	logger *slog.Logger,
	production bool,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/weatherbycity", g.WeatherByCity)
	mux.HandleFunc("/api/weatherbycoordinates", g.WeatherByCoordinates)
	mux.HandleFunc("/api/forecastbycoordinates", g.ForecastByCoordinates)
	mux.HandleFunc("/api/forecast", g.Forecast)
	mux.HandleFunc("/health", g.Health)
	mux.HandleFunc("/stats", collector.Handler())

	var chain http.Handler = mux
	chain = limiter.Middleware(production)(chain)
	chain = security.Middleware(logger, production)(chain)
	chain = validate.Middleware(logger, production)(chain)
	chain = monitor.Middleware()(chain)

	return chain
}

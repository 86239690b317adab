package validate

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/weather-gateway/internal/apperr"
	"github.com/angeloszaimis/weather-gateway/internal/reqctx"
)

// Middleware sanitizes and constrains request parameters for the
// recognized routes. It runs before every other stage that touches
// request fields and attaches the correlation id to the response.
func Middleware(log *slog.Logger, production bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, meta := reqctx.Ensure(r)
			w.Header().Set("X-Request-ID", meta.RequestID)

			reject := func(message, field, constraint string) {
				e := apperr.New(http.StatusBadRequest, message)
				e.RequestID = meta.RequestID
				e.Details = map[string]interface{}{
					"field":      field,
					"constraint": constraint,
				}
				log.Warn("request rejected by validator",
					slog.String("request_id", meta.RequestID),
					slog.String("path", r.URL.Path),
					slog.String("field", field))
				apperr.Write(w, e, production)
			}

			query := r.URL.Query()

			if !QueryLengthOK(query) {
				reject("query parameters too long", "query", "maximum query parameter length is 1000 characters")
				return
			}

			var params Params

			switch r.URL.Path {
			case "/api/weatherbycity", "/api/forecast":
				city := SanitizeString(query.Get("city"))
				if err := City(city); err != nil {
					reject("invalid city name", "city", err.Error())
					return
				}
				params.City = city

			case "/api/weatherbycoordinates", "/api/forecastbycoordinates":
				rawLon, rawLat := query.Get("lon"), query.Get("lat")
				if rawLon == "" || rawLat == "" {
					reject("coordinates are required", "lon,lat", "please provide both longitude and latitude")
					return
				}

				lon, lonErr := ParseCoordinate(rawLon)
				lat, latErr := ParseCoordinate(rawLat)
				if lonErr != nil || latErr != nil {
					reject("invalid coordinates", "lon,lat", "longitude and latitude must be numeric")
					return
				}

				if err := Coordinates(lon, lat); err != nil {
					reject("invalid coordinates", "lon,lat", err.Error())
					return
				}

				params.Lon, params.Lat = lon, lat
				params.HasCoordinates = true
			}

			log.Info("request validated",
				slog.String("request_id", meta.RequestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("client", meta.ClientIP))

			next.ServeHTTP(w, r.WithContext(withParams(r.Context(), params)))
		})
	}
}

package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/angeloszaimis/weather-gateway/internal/apperr"
)

// Client is a thin weather API client. The pipeline consumes its
// methods only as opaque operations and does not care what the result
// represents.
type Client struct {
	baseURL     string
	appID       string
	defaultCity string
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewClient(baseURL, appID, defaultCity string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		appID:       appID,
		defaultCity: defaultCity,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// WeatherByCity returns the current conditions for the named city, or
// the configured default city when the name is empty. The payload is
// passed through as-is when it carries conditions, otherwise emptied.
func (c *Client) WeatherByCity(ctx context.Context, city string) (interface{}, error) {
	if city == "" {
		city = c.defaultCity
	}

	query := url.Values{}
	query.Set("q", city)

	payload, err := c.get(ctx, "/weather", query)
	if err != nil {
		return nil, err
	}

	if payload["weather"] == nil {
		return map[string]interface{}{}, nil
	}
	return payload, nil
}

func (c *Client) WeatherByCoordinates(ctx context.Context, lon, lat float64) (interface{}, error) {
	query := url.Values{}
	query.Set("lat", formatCoordinate(lat))
	query.Set("lon", formatCoordinate(lon))

	payload, err := c.get(ctx, "/weather", query)
	if err != nil {
		return nil, err
	}

	if payload["weather"] == nil {
		return map[string]interface{}{}, nil
	}
	return payload, nil
}

func (c *Client) ForecastByCoordinates(ctx context.Context, lon, lat float64) (interface{}, error) {
	query := url.Values{}
	query.Set("lat", formatCoordinate(lat))
	query.Set("lon", formatCoordinate(lon))

	payload, err := c.get(ctx, "/forecast", query)
	if err != nil {
		return nil, err
	}

	return nextForecastSlot(payload), nil
}

func (c *Client) Forecast(ctx context.Context, city string) (interface{}, error) {
	if city == "" {
		city = c.defaultCity
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("cnt", "3")

	payload, err := c.get(ctx, "/forecast", query)
	if err != nil {
		return nil, err
	}

	return nextForecastSlot(payload), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (map[string]interface{}, error) {
	query.Set("appid", c.appID)
	query.Set("units", "metric")

	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building weather request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting weather api: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Warn("weather api returned non-success status",
			slog.String("path", path),
			slog.Int("status", res.StatusCode))

		return nil, apperr.New(upstreamStatus(res.StatusCode),
			fmt.Sprintf("weather api responded with status %d", res.StatusCode))
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, apperr.Wrap(http.StatusBadGateway, "weather api returned a malformed payload", err)
	}

	return payload, nil
}

// upstreamStatus maps the weather API's status onto the gateway's
// taxonomy. Client-side statuses pass through; generic upstream 5xx
// becomes a 502 so it classifies as an external-service failure rather
// than an internal one.
func upstreamStatus(status int) int {
	switch {
	case status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return status
	case status >= 500:
		return http.StatusBadGateway
	default:
		return status
	}
}

// nextForecastSlot picks the upcoming forecast entry out of the list
// payload, mirroring the condensed shape the routes serve.
func nextForecastSlot(payload map[string]interface{}) map[string]interface{} {
	list, ok := payload["list"].([]interface{})
	if !ok || len(list) < 2 {
		return map[string]interface{}{}
	}

	slot, ok := list[1].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}

	summary := map[string]interface{}{}

	if conditions, ok := slot["weather"].([]interface{}); ok && len(conditions) > 0 {
		summary["weather"] = conditions[0]
	}
	if t, ok := slot["dt_txt"]; ok {
		summary["time"] = t
	}

	return summary
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

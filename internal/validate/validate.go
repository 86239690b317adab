package validate

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxCityLength       = 100
	maxQueryValueLength = 1000
)

var cityPattern = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)

// Params holds the sanitized, validated request parameters handed to
// downstream stages. Stages past the validator assume these values.
type Params struct {
	City           string
	Lon            float64
	Lat            float64
	HasCoordinates bool
}

type contextKey int

const paramsKey contextKey = iota

func withParams(ctx context.Context, p Params) context.Context {
	return context.WithValue(ctx, paramsKey, p)
}

// ParamsFrom returns the validated parameters for this request.
func ParamsFrom(ctx context.Context) Params {
	p, _ := ctx.Value(paramsKey).(Params)
	return p
}

// SanitizeString trims whitespace and strips angle brackets. Applied to
// every string field before rule matching.
func SanitizeString(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(strings.TrimSpace(s))
}

// City validates a sanitized city name against the allow-listed
// character class and length cap.
func City(city string) error {
	return validation.Validate(city,
		validation.Required.Error("city parameter is required"),
		validation.Length(1, maxCityLength).Error("city name must be at most 100 characters"),
		validation.Match(cityPattern).Error("city name should contain only letters, spaces, hyphens, and apostrophes"),
	)
}

// Coordinates validates a longitude/latitude pair against their ranges.
func Coordinates(lon, lat float64) error {
	if err := validation.Validate(lon,
		validation.Min(-180.0).Error("longitude must be between -180 and 180"),
		validation.Max(180.0).Error("longitude must be between -180 and 180"),
	); err != nil {
		return err
	}

	return validation.Validate(lat,
		validation.Min(-90.0).Error("latitude must be between -90 and 90"),
		validation.Max(90.0).Error("latitude must be between -90 and 90"),
	)
}

// ParseCoordinate parses a sanitized numeric query field.
func ParseCoordinate(raw string) (float64, error) {
	return strconv.ParseFloat(SanitizeString(raw), 64)
}

// QueryLengthOK reports whether every query value is under the overall
// length cap.
func QueryLengthOK(values map[string][]string) bool {
	for _, vs := range values {
		for _, v := range vs {
			if len(v) > maxQueryValueLength {
				return false
			}
		}
	}
	return true
}

package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/angeloszaimis/weather-gateway/internal/apperr"
	"github.com/angeloszaimis/weather-gateway/internal/reqctx"
)

// Middleware enforces admission for every request. Rate-limit headers
// are set on every outcome, plus Retry-After when throttling.
func (l *Limiter) Middleware(production bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, meta := reqctx.Ensure(r)

			dec := l.Admit(r.Context(), meta.ClientIP)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))

			if !dec.Allowed {
				retryAfter := int(math.Ceil(dec.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				e := apperr.New(http.StatusTooManyRequests, "too many requests, please try again later")
				e.RequestID = meta.RequestID
				apperr.Write(w, e, production)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/angeloszaimis/weather-gateway/internal/apperr"
	"github.com/angeloszaimis/weather-gateway/internal/reqctx"
)

const (
	CookieName = "gw_csrf"
	HeaderName = "X-CSRF-Token"

	tokenBytes     = 32
	nonceBytes     = 16
	cookieLifetime = 24 * 60 * 60 // seconds
)

// Token returns a fresh cryptographically strong random token.
func Token() (string, error) {
	return randomString(tokenBytes)
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Middleware attaches the hardening response headers to every request
// and enforces the anti-forgery token on state-mutating methods.
//
// Safe methods get a fresh session token cookie if they lack one.
// Mutating methods must echo the cookie token in the X-CSRF-Token
// header; the comparison is constant-time.
func Middleware(log *slog.Logger, production bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, meta := reqctx.Ensure(r)

			nonce, err := randomString(nonceBytes)
			if err != nil {
				e := apperr.Wrap(http.StatusInternalServerError, "internal server error", err)
				e.RequestID = meta.RequestID
				apperr.Write(w, e, production)
				return
			}

			setHardeningHeaders(w.Header(), nonce)

			if safeMethod(r.Method) {
				if _, err := r.Cookie(CookieName); err != nil {
					token, err := Token()
					if err != nil {
						e := apperr.Wrap(http.StatusInternalServerError, "internal server error", err)
						e.RequestID = meta.RequestID
						apperr.Write(w, e, production)
						return
					}

					http.SetCookie(w, &http.Cookie{
						Name:     CookieName,
						Value:    token,
						Path:     "/",
						MaxAge:   cookieLifetime,
						HttpOnly: true,
						Secure:   production,
						SameSite: http.SameSiteStrictMode,
					})
				}

				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(CookieName)
			supplied := r.Header.Get(HeaderName)

			if err != nil || supplied == "" ||
				subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(supplied)) != 1 {
				log.Warn("anti-forgery token rejected",
					slog.String("request_id", meta.RequestID),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))

				e := apperr.New(http.StatusForbidden, "invalid or missing anti-forgery token")
				e.RequestID = meta.RequestID
				apperr.Write(w, e, production)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setHardeningHeaders(h http.Header, nonce string) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Permissions-Policy", "geolocation=(self)")

	h.Set("Content-Security-Policy", strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'nonce-" + nonce + "'",
		"style-src 'self'",
		"img-src 'self' data: https:",
		"connect-src 'self'",
		"font-src 'self' data:",
		"media-src 'self'",
	}, "; "))
}

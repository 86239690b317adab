package reqctx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey int

const metaKey contextKey = iota

// Meta is the per-request context carried through every pipeline stage.
// It is created once at pipeline entry and never replaced, so a request
// holds exactly one correlation id and one trace id for its lifetime.
type Meta struct {
	RequestID string
	TraceID   string
	ClientIP  string
}

// Ensure returns a request whose context carries a Meta, creating one
// if this is the first stage to ask. The returned Meta is always valid.
func Ensure(r *http.Request) (*http.Request, Meta) {
	if meta, ok := fromContext(r.Context()); ok {
		return r, meta
	}

	meta := Meta{
		RequestID: uuid.NewString(),
		TraceID:   uuid.NewString(),
		ClientIP:  ClientIP(r),
	}

	return r.WithContext(context.WithValue(r.Context(), metaKey, meta)), meta
}

// From returns the request Meta, or a zero Meta if none was injected.
func From(ctx context.Context) Meta {
	meta, _ := fromContext(ctx)
	return meta
}

func fromContext(ctx context.Context) (Meta, bool) {
	meta, ok := ctx.Value(metaKey).(Meta)
	return meta, ok
}

// ClientIP derives the client identity from the network origin,
// preferring the first hop of X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

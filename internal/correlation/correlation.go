// Package correlation threads a correlation id through a request or message
// handling chain as an explicit context value, so a log line or dead-letter
// record can be traced end to end.
package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the wire name used on HTTP requests and broker messages.
const Header = "X-Correlation-Id"

type contextKey struct{}

// WithID returns a context carrying the given correlation id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the correlation id on the context, or "" if none.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Ensure returns the context's correlation id, assigning a new one if the
// inbound request or message arrived without it.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithID(ctx, id), id
}

// Middleware assigns or propagates the correlation id on inbound HTTP
// requests and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

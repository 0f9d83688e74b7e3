package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request correlation ID in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns middleware that propagates the caller's X-Request-ID
// or assigns a new UUID, echoing it on the response.
func RequestID() Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFrom returns the request ID stored by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Logger returns middleware that logs each request's method, URI, status,
// address, request ID, and duration.
func Logger(logger *slog.Logger) Func {
	return Observe(func(r *http.Request, status int, elapsed time.Duration) {
		logger.Info(
			"request",
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"status", status,
			"addr", r.RemoteAddr,
			"request_id", RequestIDFrom(r.Context()),
			"duration", elapsed,
		)
	})
}

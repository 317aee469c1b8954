// Package requesttime provides middleware and utilities for request-scoped time.
// All operations within a single HTTP request observe the same "now", which
// keeps expiry derivation and audit timestamps consistent and lets tests fix
// the clock.
package requesttime

import (
	"context"
	"net/http"
	"time"
)

type contextKey struct{}

// Middleware captures the current time at the start of the request and stores
// it in the context for consistent time references throughout the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// Now retrieves the request-scoped time from context, falling back to wall
// time when no middleware ran (background workers, plain unit tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware gives each request a deadline. Handlers observe it via
// the request context; nothing is forcibly interrupted. Do not mount it on
// the event stream.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

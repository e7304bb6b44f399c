package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout attaches a deadline to the request context. Handlers observe the
// deadline through ctx.Done(); there is no competing writer goroutine, so
// the middleware is safe in front of streaming handlers. Chat completions
// are served without this wrapper because a healthy stream may legitimately
// outlive any fixed per-request deadline.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

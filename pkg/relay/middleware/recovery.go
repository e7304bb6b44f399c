package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"courier-hq/courier/pkg/relay"
)

// Recovery converts handler panics into a 500 response in the OpenAI error
// shape. The stack trace is logged, never sent to the client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(r.Context(), "panic in handler",
					"error", rec,
					"request_id", GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				relay.WriteErrorResponse(w, relay.NewErrorResponse(
					"An internal error occurred. Please try again later.",
					relay.ErrorTypeServerError, "", relay.CodeInternalError))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/zatekoja/serviceportal/internal/infrastructure/observability"
)

// RecoveryMiddleware turns a panicking handler into a 500 response produced by
// onPanic. http.ErrAbortHandler is re-raised so the server can drop the connection.
func RecoveryMiddleware(onPanic func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				observability.LoggerFromContext(r.Context()).Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("Unhandled panic")

				onPanic(w, r)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

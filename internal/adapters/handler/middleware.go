package handler

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Recovery turns a panic in next into a 500 and logs the stack.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error(
						"panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					respondWithError(w, http.StatusInternalServerError, &APIError{
						Code:    "INTERNAL_ERROR",
						Message: "internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(
			next,
			timeout,
			`{"success":false,"error":{"code":"TIMEOUT","message":"Request timeout"}}`,
		)
	}
}

package middleware

import (
	"net/http"

	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 envelope. http.ErrAbortHandler is
// re-panicked so net/http can abort the connection as intended.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
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

				logger.Error("PANIC recovered",
					zap.Any("error", rec),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("request_id", utils.GetRequestIDFromContext(r.Context())),
					zap.Stack("stack"),
				)
				utils.ResponseInternalError(w, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

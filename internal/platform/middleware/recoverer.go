package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/platform/requestid"
)

// Recoverer turns a handler panic into a logged 500 with the standard JSON
// error body.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
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
				logger.Error("handler panicked",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", requestid.FromContext(r.Context()),
					"stack", string(debug.Stack()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(model.ErrorResponse{
					Error:      http.StatusText(http.StatusInternalServerError),
					StatusCode: http.StatusInternalServerError,
					Message:    "An unexpected error occurred. Please try again later.",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

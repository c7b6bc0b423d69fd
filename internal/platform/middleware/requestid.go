package middleware

import (
	"net/http"

	"github.com/Bahjat/site-audit/internal/platform/requestid"
)

// RequestID assigns a request ID to each request and echoes it in the
// response. An incoming X-Request-ID header is reused when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestid.Header)
		if id == "" || len(id) > 128 {
			id = requestid.New()
		}

		w.Header().Set(requestid.Header, id)
		ctx := requestid.NewContext(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

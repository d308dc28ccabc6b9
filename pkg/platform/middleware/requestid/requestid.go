// Package requestid assigns a correlation ID per request and exposes it
// through requestcontext so services and audit metadata can reference it
// without importing net/http.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"payguard/pkg/requestcontext"
)

// Header carries the correlation ID on requests and responses.
const Header = "X-Request-Id"

// Middleware reuses an inbound X-Request-Id when present, otherwise mints a
// new one, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

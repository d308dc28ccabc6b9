// Package requesttime pins one "now" per HTTP request. All writes within a
// single submission — entity state, audit timestamp, outbox row — observe the
// same instant, which keeps audit timestamps consistent with entity state.
package requesttime

import (
	"net/http"
	"time"

	"payguard/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and stores
// it in the context for consistent time references throughout the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

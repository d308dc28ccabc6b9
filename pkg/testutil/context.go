package testutil

import (
	"net/http"
	"time"

	id "payguard/pkg/domain"
	"payguard/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context,
// simulating what the principal middleware does for authenticated requests.
// Invalid IDs are ignored so tests can exercise the unauthenticated path.
func WithPrincipal(req *http.Request, principalID string) *http.Request {
	parsed, err := id.ParsePrincipalID(principalID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), parsed))
}

// WithRequestTime pins the request-scoped clock, as the requesttime
// middleware does, so handlers under test see a deterministic time.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

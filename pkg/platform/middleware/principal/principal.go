// Package principal establishes the acting principal for a request.
//
// The surrounding application authenticates against a third-party identity
// provider; by the time a request reaches this service it carries a signed
// bearer token whose subject is the principal ID. This middleware verifies
// the signature and puts the typed principal into the request context —
// session management stays upstream.
package principal

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "payguard/pkg/domain"
	dErrors "payguard/pkg/domain-errors"
	"payguard/pkg/platform/httputil"
	"payguard/pkg/requestcontext"
)

// Require verifies the bearer token and injects the acting principal.
// Requests without a valid principal never reach the orchestrator.
func Require(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			principal, err := subjectFromToken(raw, signingKey)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx := requestcontext.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func subjectFromToken(raw string, signingKey []byte) (id.PrincipalID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return id.PrincipalID{}, err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return id.PrincipalID{}, err
	}
	return id.ParsePrincipalID(subject)
}

// Package httptransport assembles the HTTP surface: middleware chain, feature
// routers, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payguard/internal/platform/metrics"
	"payguard/pkg/platform/httputil"
	"payguard/pkg/platform/middleware/metadata"
	"payguard/pkg/platform/middleware/principal"
	"payguard/pkg/platform/middleware/requestid"
	"payguard/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by feature handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router wires together.
type Deps struct {
	Approval      Registrar
	Policy        Registrar
	JWTSigningKey []byte
	Logger        *slog.Logger
	HTTPMetrics   *metrics.HTTP

	// Optional; nil checkers are skipped.
	Checkers map[string]HealthChecker
}

// NewRouter builds the full handler tree. Authenticated API routes sit behind
// the principal middleware; /healthz and /metrics stay open.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(deps.HTTPMetrics.Middleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(deps.Checkers))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(principal.Require(deps.JWTSigningKey, deps.Logger))
		deps.Approval.Register(api)
		deps.Policy.Register(api)
	})

	return r
}

func healthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checkers))
		for name, checker := range checkers {
			if checker == nil {
				continue
			}
			if err := checker.Health(ctx); err != nil {
				deps[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		httputil.WriteJSON(w, status, map[string]any{
			"status":       healthWord(status),
			"dependencies": deps,
		})
	}
}

func healthWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

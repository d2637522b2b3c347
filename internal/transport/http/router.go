// Package httptransport assembles the HTTP surface: middleware chain,
// feature routes, health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"member-vault/internal/platform/metrics"
	"member-vault/internal/platform/middleware"
	"member-vault/internal/transport/http/shared"
)

// Registrar is implemented by feature handlers mounting their routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// NewRouter wires all endpoints. Feature routes sit behind the full
// middleware chain; health and metrics stay public and unauthenticated.
func NewRouter(
	logger *slog.Logger,
	m *metrics.Metrics,
	validator middleware.JWTValidator,
	checks map[string]HealthCheck,
	handlers ...Registrar,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(gr chi.Router) {
		gr.Use(middleware.ContentTypeJSON)
		gr.Use(middleware.Latency(m))
		gr.Use(middleware.RequireAuth(validator, logger))
		for _, h := range handlers {
			h.Register(gr)
		}
	})
	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		body := map[string]any{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		shared.WriteJSON(w, status, body)
	}
}

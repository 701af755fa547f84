package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wardgate/internal/platform/clientinfo"
	"wardgate/internal/platform/middleware"
)

const (
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 64 << 10
)

// HealthChecker reports the readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter assembles the middleware stack and the REST surface.
func NewRouter(handler *Handler, logger *slog.Logger, health HealthChecker) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	// Client info runs before the request logger so the logger can report the
	// caller's anonymized IP.
	r.Use(clientinfo.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.BodyLimit(maxBodyBytes))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(logger, health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/access/verify", handler.Verify)
		r.Post("/tokens/redeem", handler.Redeem)
		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", handler.Register)
			r.Get("/", handler.List)
			r.Post("/{id}/activate", handler.Activate)
			r.Post("/{id}/suspend", handler.Suspend)
		})
		r.Get("/ratelimit/check", handler.RateLimitCheck)
		r.Get("/ratelimit/status", handler.BlockStatus)
	})

	return r
}

func healthHandler(logger *slog.Logger, health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health.Health(r.Context()); err != nil {
				writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mdm-platform/feedhub/internal/api"
	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/middleware"
)

// RegisterRoutes builds the HTTP handler. gatherer backs /metrics and must be
// the registry the metrics in deps were registered with.
func RegisterRoutes(deps *api.Dependencies, limits config.RateLimitConfig, gatherer prometheus.Gatherer) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(deps.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Use(middleware.NewRateLimiter(limits).Middleware)

	logging.Info("Router initialized with metrics and rate limiting middleware")

	// public
	r.Get("/healthCheck", api.HealthCheckHandler(deps))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	handlers := api.NewHandlers(deps)
	RegisterAPIRoutes(r, deps, handlers)

	return r
}

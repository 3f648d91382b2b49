// Package api wires the HTTP surface: middleware stack, routes, and
// health endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/api/handlers"
	"github.com/geowatch/geowatch/internal/api/middleware"
	"github.com/geowatch/geowatch/internal/billing"
	"github.com/geowatch/geowatch/internal/observability"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	rediscache "github.com/geowatch/geowatch/internal/repository/redis"
	"github.com/geowatch/geowatch/internal/services/monitoring"
	"github.com/geowatch/geowatch/internal/services/reporting"
	"github.com/geowatch/geowatch/pkg/httputil"
)

// Router holds the HTTP router and its dependencies
type Router struct {
	chi.Router
	logger *zap.Logger
}

// RouterConfig contains configuration for the router
type RouterConfig struct {
	DB           *postgres.DB
	Repos        *postgres.Repositories
	Cache        *rediscache.Cache
	Orchestrator *monitoring.Orchestrator
	Billing      *billing.Service
	Email        *reporting.EmailService
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	CronSecret   string
	EnableCORS   bool
	RateLimit    int
	Development  bool
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Handler)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Handler)
	}
	r.Use(chimw.Timeout(10 * time.Minute))

	// CORS configuration
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-User-ID", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Rate limiting (if Redis is available)
	if cfg.Cache != nil && cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimitMiddleware(cfg.Cache, cfg.RateLimit, true).Handler)
	}

	// Health and metrics endpoints (no auth required)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(cfg.DB, cfg.Cache))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	appHandler := handlers.NewAppHandler(cfg.Repos.Apps, cfg.Billing, cfg.Cache, cfg.Logger)
	keywordHandler := handlers.NewKeywordHandler(cfg.Repos.Keywords, cfg.Repos.Apps, cfg.Billing, cfg.Logger)
	resultHandler := handlers.NewResultHandler(cfg.Repos.Results, cfg.Repos.Apps, cfg.Cache, cfg.Logger)
	monitoringHandler := handlers.NewMonitoringHandler(
		cfg.Repos.Apps,
		cfg.Repos.Keywords,
		cfg.Orchestrator,
		cfg.Billing,
		cfg.Cache,
		cfg.Metrics,
		cfg.Logger,
	)
	cronHandler := handlers.NewCronHandler(
		cfg.Repos.Apps,
		cfg.Repos.Keywords,
		cfg.Orchestrator,
		cfg.Billing,
		cfg.Email,
		cfg.Cache,
		cfg.Metrics,
		cfg.Logger,
	)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Scheduled runs authenticate by shared secret, not API key
		r.Group(func(r chi.Router) {
			r.Use(middleware.CronAuth(cfg.CronSecret))
			r.Get("/cron/monitor", cronHandler.Monitor)
		})

		// User-facing routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(cfg.Development).Handler)
			r.Use(middleware.RequireUser)

			r.Route("/apps", func(r chi.Router) {
				r.Get("/", appHandler.List)
				r.Post("/", appHandler.Create)
				r.Get("/{id}", appHandler.Get)
				r.Put("/{id}", appHandler.Update)
				r.Delete("/{id}", appHandler.Delete)

				r.Post("/{id}/run", monitoringHandler.Run)

				r.Route("/{id}/keywords", func(r chi.Router) {
					r.Get("/", keywordHandler.List)
					r.Post("/", keywordHandler.Create)
					r.Delete("/{keyword_id}", keywordHandler.Delete)
				})

				r.Route("/{id}/results", func(r chi.Router) {
					r.Get("/", resultHandler.List)
					r.Get("/stats", resultHandler.Stats)
				})
			})
		})
	})

	return &Router{
		Router: r,
		logger: cfg.Logger,
	}
}

// healthHandler returns basic health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "geowatch-api",
	})
}

// readyHandler checks if all dependencies are ready
func readyHandler(db *postgres.DB, cache *rediscache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string)
		allHealthy := true

		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				checks["database"] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				checks["database"] = "healthy"
			}
		}

		if cache != nil {
			if err := cache.Health(r.Context()); err != nil {
				checks["redis"] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				checks["redis"] = "healthy"
			}
		} else {
			checks["redis"] = "not configured"
		}

		status := http.StatusOK
		statusText := "ready"
		if !allHealthy {
			status = http.StatusServiceUnavailable
			statusText = "not ready"
		}

		httputil.JSON(w, status, map[string]any{
			"status": statusText,
			"checks": checks,
		})
	}
}

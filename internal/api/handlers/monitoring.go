package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/api/middleware"
	"github.com/geowatch/geowatch/internal/billing"
	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/observability"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	"github.com/geowatch/geowatch/internal/repository/redis"
	"github.com/geowatch/geowatch/internal/services/monitoring"
	"github.com/geowatch/geowatch/pkg/httputil"
)

// MonitoringHandler triggers on-demand monitoring runs
type MonitoringHandler struct {
	apps         *postgres.AppRepository
	keywords     *postgres.KeywordRepository
	orchestrator *monitoring.Orchestrator
	billing      *billing.Service
	cache        *redis.Cache
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewMonitoringHandler creates a new monitoring handler. cache and
// metrics may be nil.
func NewMonitoringHandler(
	apps *postgres.AppRepository,
	keywords *postgres.KeywordRepository,
	orchestrator *monitoring.Orchestrator,
	billing *billing.Service,
	cache *redis.Cache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *MonitoringHandler {
	return &MonitoringHandler{
		apps:         apps,
		keywords:     keywords,
		orchestrator: orchestrator,
		billing:      billing,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

// RunResponse is the response body for a completed run. Results is the
// count of persisted result rows; Outcomes carries the per-pair detail.
type RunResponse struct {
	Status       string               `json:"status"`
	TotalChecked int                  `json:"total_checked"`
	Results      int                  `json:"results"`
	Mentions     int                  `json:"mentions"`
	Outcomes     []monitoring.Outcome `json:"outcomes"`
	Errors       []string             `json:"errors,omitempty"`
}

// Run handles POST /api/v1/apps/{id}/run. The run is synchronous:
// interactive providers can take minutes, so callers should use a
// generous client timeout.
func (h *MonitoringHandler) Run(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.apps)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	if _, err := h.billing.RequireActive(r.Context(), userID); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	opts := monitoring.Options{
		Expand: r.URL.Query().Get("expand") == "true",
	}
	if raw := r.URL.Query().Get("provider"); raw != "" {
		provider := domain.Provider(raw)
		if !provider.IsValid() {
			httputil.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown provider: "+raw, nil)
			return
		}
		opts.Providers = []domain.Provider{provider}
	}

	keywords, err := h.keywords.GetByAppID(r.Context(), app.ID)
	if err != nil {
		h.logger.Error("Failed to load keywords for run", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	stats, err := h.orchestrator.Run(r.Context(), app, keywords, opts)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordRun("manual", "error")
		}
		h.logger.Error("Run failed", zap.String("app", app.Slug), zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "RUN_FAILED", err.Error(), nil)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRun("manual", "completed")
	}

	if h.cache != nil {
		if err := h.cache.InvalidateResults(r.Context(), app.ID); err != nil {
			h.logger.Warn("Failed to invalidate results cache", zap.Error(err))
		}
	}

	httputil.JSON(w, http.StatusOK, RunResponse{
		Status:       "completed",
		TotalChecked: stats.KeywordsChecked,
		Results:      stats.ResultsCreated,
		Mentions:     stats.Mentions,
		Outcomes:     stats.Outcomes,
		Errors:       stats.Errors,
	})
}

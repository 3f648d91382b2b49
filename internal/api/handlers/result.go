package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	"github.com/geowatch/geowatch/internal/repository/redis"
	"github.com/geowatch/geowatch/pkg/httputil"
)

// ResultHandler handles monitoring result queries
type ResultHandler struct {
	repo   *postgres.ResultRepository
	apps   *postgres.AppRepository
	cache  *redis.Cache
	logger *zap.Logger
}

// NewResultHandler creates a new result handler. cache may be nil.
func NewResultHandler(repo *postgres.ResultRepository, apps *postgres.AppRepository, cache *redis.Cache, logger *zap.Logger) *ResultHandler {
	return &ResultHandler{
		repo:   repo,
		apps:   apps,
		cache:  cache,
		logger: logger,
	}
}

// List handles GET /api/v1/apps/{id}/results. Supports keyword_id,
// provider and mentioned query filters; the unfiltered listing is
// served from cache when available.
func (h *ResultHandler) List(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.apps)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	filter, err := parseResultFilter(r)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	unfiltered := filter.KeywordID == nil && filter.Provider == nil && filter.Mentioned == nil

	if unfiltered && h.cache != nil {
		if cached, err := h.cache.GetResults(r.Context(), app.ID); err == nil && cached != nil {
			httputil.JSON(w, http.StatusOK, cached)
			return
		}
	}

	results, err := h.repo.GetByAppID(r.Context(), app.ID, filter)
	if err != nil {
		h.logger.Error("Failed to list results", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	if unfiltered && h.cache != nil {
		if err := h.cache.SetResults(r.Context(), app.ID, results); err != nil {
			h.logger.Warn("Failed to cache results", zap.Error(err))
		}
	}

	httputil.JSON(w, http.StatusOK, results)
}

// Stats handles GET /api/v1/apps/{id}/results/stats
func (h *ResultHandler) Stats(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.apps)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	total, mentioned, err := h.repo.CountMentionsByAppID(r.Context(), app.ID)
	if err != nil {
		h.logger.Error("Failed to count mentions", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	rate := 0.0
	if total > 0 {
		rate = float64(mentioned) / float64(total) * 100
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"total":        total,
		"mentioned":    mentioned,
		"mention_rate": rate,
	})
}

// parseResultFilter builds a listing filter from query parameters
func parseResultFilter(r *http.Request) (postgres.ResultFilter, error) {
	var filter postgres.ResultFilter
	q := r.URL.Query()

	if raw := q.Get("keyword_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, domain.ValidationError("keyword_id", "invalid keyword_id format")
		}
		filter.KeywordID = &id
	}

	if raw := q.Get("provider"); raw != "" {
		provider := domain.Provider(raw)
		if !provider.IsValid() {
			return filter, domain.ValidationError("provider", "unknown provider: "+raw)
		}
		filter.Provider = &provider
	}

	if raw := q.Get("mentioned"); raw != "" {
		switch raw {
		case "true":
			v := true
			filter.Mentioned = &v
		case "false":
			v := false
			filter.Mentioned = &v
		default:
			return filter, domain.ValidationError("mentioned", "mentioned must be true or false")
		}
	}

	return filter, nil
}

package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/api/middleware"
	"github.com/geowatch/geowatch/internal/billing"
	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	"github.com/geowatch/geowatch/internal/repository/redis"
	"github.com/geowatch/geowatch/pkg/httputil"
)

// AppHandler handles app-related requests
type AppHandler struct {
	repo    *postgres.AppRepository
	billing *billing.Service
	cache   *redis.Cache
	logger  *zap.Logger
}

// NewAppHandler creates a new app handler. cache may be nil.
func NewAppHandler(repo *postgres.AppRepository, billing *billing.Service, cache *redis.Cache, logger *zap.Logger) *AppHandler {
	return &AppHandler{
		repo:    repo,
		billing: billing,
		cache:   cache,
		logger:  logger,
	}
}

// CreateAppRequest is the request body for creating an app
type CreateAppRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}

// Create handles POST /api/v1/apps
func (h *AppHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	var req CreateAppRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if err := h.billing.CheckAppQuota(r.Context(), userID); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = slugify(req.Name)
	}

	app := domain.NewApp(userID, req.Name, slug, req.Description)
	app.LogoURL = req.LogoURL

	if err := app.Validate(); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if err := h.repo.Create(r.Context(), app); err != nil {
		if !domain.IsSentinelError(err, domain.ErrAlreadyExistsVal) {
			h.logger.Error("Failed to create app", zap.Error(err))
		}
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("App created",
		zap.String("app_id", app.ID.String()),
		zap.String("slug", app.Slug),
		zap.String("user_id", userID),
	)

	httputil.JSON(w, http.StatusCreated, app)
}

// List handles GET /api/v1/apps
func (h *AppHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	apps, err := h.repo.GetByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list apps", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, apps)
}

// Get handles GET /api/v1/apps/{id}
func (h *AppHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.repo)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, app)
}

// UpdateAppRequest is the request body for updating an app
type UpdateAppRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// Update handles PUT /api/v1/apps/{id}
func (h *AppHandler) Update(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.repo)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	var req UpdateAppRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if req.Name != nil {
		app.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		app.Description = *req.Description
	}
	if req.LogoURL != nil {
		app.LogoURL = *req.LogoURL
	}
	if req.Status != nil {
		status := domain.AppStatus(*req.Status)
		if !status.IsValid() {
			httputil.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status: "+*req.Status, nil)
			return
		}
		app.Status = status
	}

	if err := app.Validate(); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if err := h.repo.Update(r.Context(), app); err != nil {
		h.logger.Error("Failed to update app", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.invalidateCache(r, app)
	h.logger.Info("App updated", zap.String("app_id", app.ID.String()))

	httputil.JSON(w, http.StatusOK, app)
}

// Delete handles DELETE /api/v1/apps/{id}
func (h *AppHandler) Delete(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.repo)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if err := h.repo.Delete(r.Context(), app.ID); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.invalidateCache(r, app)
	h.logger.Info("App deleted", zap.String("app_id", app.ID.String()))

	httputil.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// invalidateCache drops cached views of the app. Cache failures are
// logged and ignored.
func (h *AppHandler) invalidateCache(r *http.Request, app *domain.App) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateApp(r.Context(), app); err != nil {
		h.logger.Warn("Failed to invalidate app cache", zap.Error(err))
	}
	if err := h.cache.InvalidateResults(r.Context(), app.ID); err != nil {
		h.logger.Warn("Failed to invalidate results cache", zap.Error(err))
	}
}

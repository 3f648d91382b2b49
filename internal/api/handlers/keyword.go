package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/api/middleware"
	"github.com/geowatch/geowatch/internal/billing"
	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	"github.com/geowatch/geowatch/pkg/httputil"
)

// KeywordHandler handles keyword-related requests
type KeywordHandler struct {
	repo    *postgres.KeywordRepository
	apps    *postgres.AppRepository
	billing *billing.Service
	logger  *zap.Logger
}

// NewKeywordHandler creates a new keyword handler
func NewKeywordHandler(repo *postgres.KeywordRepository, apps *postgres.AppRepository, billing *billing.Service, logger *zap.Logger) *KeywordHandler {
	return &KeywordHandler{
		repo:    repo,
		apps:    apps,
		billing: billing,
		logger:  logger,
	}
}

// CreateKeywordRequest is the request body for creating a keyword
type CreateKeywordRequest struct {
	Keyword string `json:"keyword"`
}

// Create handles POST /api/v1/apps/{id}/keywords
func (h *KeywordHandler) Create(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.apps)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	var req CreateKeywordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	userID, _ := middleware.GetUserID(r.Context())
	if err := h.billing.CheckKeywordQuota(r.Context(), userID, app.ID); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	keyword := domain.NewKeyword(app.ID, req.Keyword)
	if err := keyword.Validate(); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if err := h.repo.Create(r.Context(), keyword); err != nil {
		if !domain.IsSentinelError(err, domain.ErrAlreadyExistsVal) {
			h.logger.Error("Failed to create keyword", zap.Error(err))
		}
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Keyword created",
		zap.String("keyword_id", keyword.ID.String()),
		zap.String("app_id", app.ID.String()),
		zap.String("keyword", keyword.Keyword),
	)

	httputil.JSON(w, http.StatusCreated, keyword)
}

// List handles GET /api/v1/apps/{id}/keywords
func (h *KeywordHandler) List(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.apps)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	keywords, err := h.repo.GetByAppID(r.Context(), app.ID)
	if err != nil {
		h.logger.Error("Failed to list keywords", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, keywords)
}

// Delete handles DELETE /api/v1/apps/{id}/keywords/{keyword_id}
func (h *KeywordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	app, err := requireOwnedApp(r, h.apps)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	keywordID, err := parseIDParam(r, "keyword_id")
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	keyword, err := h.repo.GetByID(r.Context(), keywordID)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if keyword.AppID != app.ID {
		httputil.ErrorFromDomain(w, domain.NotFoundError("keyword", keywordID))
		return
	}

	if err := h.repo.Delete(r.Context(), keywordID); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Keyword deleted",
		zap.String("keyword_id", keywordID.String()),
		zap.String("app_id", app.ID.String()),
	)

	httputil.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

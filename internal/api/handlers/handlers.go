// Package handlers implements the HTTP API surface: app and keyword
// CRUD, result listing, and the run triggers (owner-initiated and
// scheduled).
package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/geowatch/geowatch/internal/api/middleware"
	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/repository/postgres"
)

// parseIDParam extracts and parses a UUID path parameter
func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	idStr := chi.URLParam(r, name)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, domain.ValidationError(name, "invalid ID format")
	}
	return id, nil
}

// requireOwnedApp loads the app named by the {id} path parameter and
// verifies the authenticated user owns it. Non-owners get a not-found
// rather than a forbidden, so app IDs are not probeable.
func requireOwnedApp(r *http.Request, apps *postgres.AppRepository) (*domain.App, error) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		return nil, err
	}

	app, err := apps.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return nil, domain.ForbiddenError("authentication required")
	}
	if app.UserID != userID {
		return nil, domain.NotFoundError("app", id)
	}

	return app, nil
}

var slugCleanup = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL-safe slug from an app name
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugCleanup.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Context keys
type contextKey string

const (
	ContextKeyUserID contextKey = "user_id"
	ContextKeyAPIKey contextKey = "api_key"
)

// GetUserID extracts the authenticated user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(string)
	return id, ok
}

// writeJSONError writes a JSON error response for auth failures
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// AuthMiddleware authenticates requests by API key. Keys are issued by
// the account gateway in the form gw_<user_id>_<random>; the random
// suffix is validated upstream, this service trusts the gateway and
// extracts the caller identity.
type AuthMiddleware struct {
	devMode bool
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(devMode bool) *AuthMiddleware {
	return &AuthMiddleware{devMode: devMode}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := m.extractAPIKey(r)

		if apiKey == "" {
			if m.devMode {
				m.handleDevMode(w, r, next)
				return
			}
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key required")
			return
		}

		userID, err := parseAPIKey(apiKey)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "INVALID_API_KEY", err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
		ctx = context.WithValue(ctx, ContextKeyAPIKey, apiKey)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractAPIKey extracts the API key from request headers
func (m *AuthMiddleware) extractAPIKey(r *http.Request) string {
	apiKey := r.Header.Get("X-API-Key")
	if apiKey != "" {
		return apiKey
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}

// parseAPIKey validates the key format and extracts the user ID. The
// user ID segment may itself contain underscores, so the random
// suffix is split off the end.
func parseAPIKey(apiKey string) (string, error) {
	if !strings.HasPrefix(apiKey, "gw_") {
		return "", &AuthError{Code: "INVALID_FORMAT", Message: "Invalid API key format"}
	}

	rest := strings.TrimPrefix(apiKey, "gw_")
	sep := strings.LastIndex(rest, "_")
	if sep <= 0 {
		return "", &AuthError{Code: "INVALID_FORMAT", Message: "Invalid API key format"}
	}

	userID := rest[:sep]
	random := rest[sep+1:]
	if len(random) < 16 {
		return "", &AuthError{Code: "INVALID_FORMAT", Message: "Invalid API key format"}
	}

	return userID, nil
}

// handleDevMode allows identity via header for local development
func (m *AuthMiddleware) handleDevMode(w http.ResponseWriter, r *http.Request, next http.Handler) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-User-ID header required in dev mode")
		return
	}

	ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// RequireUser middleware ensures an authenticated user is present
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := GetUserID(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CronAuth authorizes scheduled-run requests by shared secret. The
// comparison is exact; an empty configured secret rejects everything.
func CronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Cron secret not configured")
				return
			}
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+secret {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid cron secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	"github.com/geowatch/geowatch/pkg/httputil"
)

func TestResultHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	repos := postgres.NewRepositories(testDB.DB)
	handler := NewResultHandler(repos.Results, repos.Apps, nil, zap.NewNop())
	ctx := context.Background()

	seed := func(t *testing.T) (*domain.App, *domain.Keyword) {
		t.Helper()
		testDB.TruncateTables(t)

		app := domain.NewApp("user_1", "Acme Notes", "acme-notes", "")
		require.NoError(t, repos.Apps.Create(ctx, app))
		kw := domain.NewKeyword(app.ID, "note taking app")
		require.NoError(t, repos.Keywords.Create(ctx, kw))

		mentioned := domain.NewMonitoringResult(app.ID, kw.ID, domain.ProviderGoogleAIMode, "note taking app")
		mentioned.Response = "Acme Notes is great"
		mentioned.Mentioned = true
		mentioned.Sentiment = domain.SentimentNeutral
		require.NoError(t, repos.Results.Replace(ctx, kw.ID, domain.ProviderGoogleAIMode, []*domain.MonitoringResult{mentioned}))

		missed := domain.NewMonitoringResult(app.ID, kw.ID, domain.ProviderChatGPT, "note taking app")
		missed.Response = "Many apps exist"
		require.NoError(t, repos.Results.Replace(ctx, kw.ID, domain.ProviderChatGPT, []*domain.MonitoringResult{missed}))

		return app, kw
	}

	listResults := func(t *testing.T, app *domain.App, query string) []interface{} {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/apps/"+app.ID.String()+"/results"+query, nil)
		req = withUser(req, "user_1")
		req = withURLParams(req, map[string]string{"id": app.ID.String()})
		rec := httptest.NewRecorder()

		handler.List(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp httputil.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		if resp.Data == nil {
			return nil
		}
		return resp.Data.([]interface{})
	}

	t.Run("List_All", func(t *testing.T) {
		app, _ := seed(t)
		assert.Len(t, listResults(t, app, ""), 2)
	})

	t.Run("List_FilterByProvider", func(t *testing.T) {
		app, _ := seed(t)
		results := listResults(t, app, "?provider=chatgpt")
		require.Len(t, results, 1)
		assert.Equal(t, "chatgpt", results[0].(map[string]interface{})["provider"])
	})

	t.Run("List_FilterByMentioned", func(t *testing.T) {
		app, _ := seed(t)
		results := listResults(t, app, "?mentioned=true")
		require.Len(t, results, 1)
		assert.Equal(t, true, results[0].(map[string]interface{})["mentioned"])
	})

	t.Run("List_InvalidProvider", func(t *testing.T) {
		app, _ := seed(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/apps/"+app.ID.String()+"/results?provider=bing", nil)
		req = withUser(req, "user_1")
		req = withURLParams(req, map[string]string{"id": app.ID.String()})
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("List_NotOwner", func(t *testing.T) {
		app, _ := seed(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/apps/"+app.ID.String()+"/results", nil)
		req = withUser(req, "someone_else")
		req = withURLParams(req, map[string]string{"id": app.ID.String()})
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Stats", func(t *testing.T) {
		app, _ := seed(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/apps/"+app.ID.String()+"/results/stats", nil)
		req = withUser(req, "user_1")
		req = withURLParams(req, map[string]string{"id": app.ID.String()})
		rec := httptest.NewRecorder()

		handler.Stats(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp httputil.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(2), data["total"])
		assert.Equal(t, float64(1), data["mentioned"])
		assert.Equal(t, float64(50), data["mention_rate"])
	})
}

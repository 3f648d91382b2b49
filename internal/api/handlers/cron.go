package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/billing"
	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/observability"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	"github.com/geowatch/geowatch/internal/repository/redis"
	"github.com/geowatch/geowatch/internal/services/monitoring"
	"github.com/geowatch/geowatch/internal/services/reporting"
	"github.com/geowatch/geowatch/pkg/httputil"
)

// CronHandler runs the scheduled monitoring sweep. It is triggered by
// an external scheduler hitting GET /api/v1/cron/monitor with the
// shared secret.
type CronHandler struct {
	apps         *postgres.AppRepository
	keywords     *postgres.KeywordRepository
	orchestrator *monitoring.Orchestrator
	billing      *billing.Service
	email        *reporting.EmailService
	cache        *redis.Cache
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewCronHandler creates a new cron handler. email, cache and metrics
// may be nil.
func NewCronHandler(
	apps *postgres.AppRepository,
	keywords *postgres.KeywordRepository,
	orchestrator *monitoring.Orchestrator,
	billing *billing.Service,
	email *reporting.EmailService,
	cache *redis.Cache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CronHandler {
	return &CronHandler{
		apps:         apps,
		keywords:     keywords,
		orchestrator: orchestrator,
		billing:      billing,
		email:        email,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

// CronResponse summarizes a scheduled sweep
type CronResponse struct {
	Status          string   `json:"status"`
	Apps            int      `json:"apps"`
	KeywordsChecked int      `json:"keywords_checked"`
	ResultsCreated  int      `json:"results_created"`
	EmailsSent      int      `json:"emails_sent"`
	Errors          []string `json:"errors,omitempty"`
}

// Monitor handles GET /api/v1/cron/monitor. Every active app whose
// owner has an active subscription is checked against the hosted
// provider, then each owner gets one report email covering their apps.
// Individual failures are accumulated, never fatal.
func (h *CronHandler) Monitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := CronResponse{Status: "completed"}

	apps, err := h.apps.GetActive(ctx)
	if err != nil {
		h.logger.Error("Failed to load active apps", zap.Error(err))
		if h.metrics != nil {
			h.metrics.RecordRun("cron", "error")
		}
		httputil.ErrorFromDomain(w, err)
		return
	}

	// Group apps by owner so billing is checked once and each user
	// gets a single report.
	byUser := make(map[string][]*domain.App)
	var userOrder []string
	for _, app := range apps {
		if _, seen := byUser[app.UserID]; !seen {
			userOrder = append(userOrder, app.UserID)
		}
		byUser[app.UserID] = append(byUser[app.UserID], app)
	}

	for _, userID := range userOrder {
		sub, err := h.billing.RequireActive(ctx, userID)
		if err != nil {
			h.logger.Debug("Skipping user without active subscription",
				zap.String("user_id", userID))
			continue
		}

		report := reporting.UserReport{
			Email:       sub.Email,
			GeneratedAt: time.Now().UTC(),
		}

		for _, app := range byUser[userID] {
			appReport, ok := h.runApp(ctx, app, &resp)
			if !ok {
				continue
			}
			report.Apps = append(report.Apps, appReport)
		}

		if len(report.Apps) == 0 || report.Email == "" {
			continue
		}
		if h.email == nil {
			continue
		}

		if err := h.email.SendReport(ctx, &report); err != nil {
			h.logger.Error("Failed to send report email",
				zap.String("user_id", userID), zap.Error(err))
			resp.Errors = append(resp.Errors, "email "+userID+": "+err.Error())
			if h.metrics != nil {
				h.metrics.RecordReportEmail(err)
			}
			continue
		}
		resp.EmailsSent++
		if h.metrics != nil {
			h.metrics.RecordReportEmail(nil)
		}
	}

	if h.metrics != nil {
		h.metrics.RecordRun("cron", "completed")
	}

	h.logger.Info("Scheduled sweep complete",
		zap.Int("apps", resp.Apps),
		zap.Int("keywords_checked", resp.KeywordsChecked),
		zap.Int("results_created", resp.ResultsCreated),
		zap.Int("emails_sent", resp.EmailsSent),
		zap.Int("errors", len(resp.Errors)),
	)

	httputil.JSON(w, http.StatusOK, resp)
}

// runApp checks one app with the hosted provider and folds the outcome
// into the sweep totals and the owner's report.
func (h *CronHandler) runApp(ctx context.Context, app *domain.App, resp *CronResponse) (reporting.AppReport, bool) {
	keywords, err := h.keywords.GetActiveByAppID(ctx, app.ID)
	if err != nil {
		h.logger.Error("Failed to load keywords",
			zap.String("app", app.Slug), zap.Error(err))
		resp.Errors = append(resp.Errors, app.Slug+": "+err.Error())
		return reporting.AppReport{}, false
	}
	if len(keywords) == 0 {
		return reporting.AppReport{}, false
	}

	stats, err := h.orchestrator.Run(ctx, app, keywords, monitoring.Options{
		Providers: []domain.Provider{domain.ProviderGoogleAIMode},
	})
	if err != nil {
		h.logger.Error("Scheduled run failed",
			zap.String("app", app.Slug), zap.Error(err))
		resp.Errors = append(resp.Errors, app.Slug+": "+err.Error())
		return reporting.AppReport{}, false
	}

	resp.Apps++
	resp.KeywordsChecked += stats.KeywordsChecked
	resp.ResultsCreated += stats.ResultsCreated
	resp.Errors = append(resp.Errors, stats.Errors...)

	if h.cache != nil {
		if err := h.cache.InvalidateResults(ctx, app.ID); err != nil {
			h.logger.Warn("Failed to invalidate results cache", zap.Error(err))
		}
	}

	appReport := reporting.AppReport{
		AppName:         app.Name,
		KeywordsChecked: stats.KeywordsChecked,
		ResultsCreated:  stats.ResultsCreated,
		Mentions:        stats.Mentions,
		Errors:          stats.Errors,
	}
	for _, outcome := range stats.Outcomes {
		appReport.Rows = append(appReport.Rows, reporting.KeywordRow{
			Keyword:   outcome.Keyword,
			Provider:  outcome.Provider,
			Mentioned: outcome.Mentioned,
			Error:     outcome.Error,
		})
	}

	return appReport, true
}

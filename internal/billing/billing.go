// Package billing gates monitoring features on subscription state.
// Subscriptions themselves are written by the payment webhook sync;
// this service only reads and enforces.
package billing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/domain"
)

// SubscriptionStore reads billing state.
type SubscriptionStore interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
}

// QuotaStore counts billable resources.
type QuotaStore interface {
	CountAppsByUserID(ctx context.Context, userID string) (int, error)
	CountKeywordsByAppID(ctx context.Context, appID uuid.UUID) (int, error)
}

// Service enforces subscription gating and plan quotas.
type Service struct {
	subs   SubscriptionStore
	quotas QuotaStore
	logger *zap.Logger
}

// NewService creates a billing service
func NewService(subs SubscriptionStore, quotas QuotaStore, logger *zap.Logger) *Service {
	return &Service{
		subs:   subs,
		quotas: quotas,
		logger: logger.Named("billing"),
	}
}

// RequireActive returns the user's subscription when it grants access
// (active or trialing), a forbidden error otherwise.
func (s *Service) RequireActive(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		if domain.IsSentinelError(err, domain.ErrNotFoundVal) {
			return nil, domain.ForbiddenError("no active subscription")
		}
		return nil, err
	}

	if !sub.IsActive() {
		s.logger.Debug("subscription inactive",
			zap.String("user_id", userID),
			zap.String("status", sub.Status))
		return nil, domain.ForbiddenError("subscription is " + sub.Status)
	}

	return sub, nil
}

// IsActive reports whether the user may run monitoring, without
// surfacing an error. Used by the scheduled run to skip users quietly.
func (s *Service) IsActive(ctx context.Context, userID string) bool {
	_, err := s.RequireActive(ctx, userID)
	return err == nil
}

// CheckAppQuota verifies the user can create another app under their
// plan.
func (s *Service) CheckAppQuota(ctx context.Context, userID string) error {
	sub, err := s.RequireActive(ctx, userID)
	if err != nil {
		return err
	}

	plan := sub.GetPlanConfig()
	count, err := s.quotas.CountAppsByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if count >= plan.MaxApps {
		return domain.QuotaExceededError("apps", plan.MaxApps)
	}

	return nil
}

// CheckKeywordQuota verifies the app can hold another keyword under
// the owner's plan.
func (s *Service) CheckKeywordQuota(ctx context.Context, userID string, appID uuid.UUID) error {
	sub, err := s.RequireActive(ctx, userID)
	if err != nil {
		return err
	}

	plan := sub.GetPlanConfig()
	count, err := s.quotas.CountKeywordsByAppID(ctx, appID)
	if err != nil {
		return err
	}
	if count >= plan.MaxKeywordsPerApp {
		return domain.QuotaExceededError("keywords", plan.MaxKeywordsPerApp)
	}

	return nil
}

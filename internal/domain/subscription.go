package domain

import (
	"time"
)

// Plan represents paid subscription tiers
type Plan string

const (
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

func (p Plan) IsValid() bool {
	return p == PlanPro || p == PlanBusiness
}

// PlanConfig holds the limits for a plan
type PlanConfig struct {
	Name              string
	MonthlyPrice      int64 // cents
	MaxApps           int
	MaxKeywordsPerApp int
}

// DefaultPlans returns the plan configurations
var DefaultPlans = map[Plan]PlanConfig{
	PlanPro: {
		Name:              "Pro",
		MonthlyPrice:      4900,
		MaxApps:           3,
		MaxKeywordsPerApp: 10,
	},
	PlanBusiness: {
		Name:              "Business",
		MonthlyPrice:      19900,
		MaxApps:           10,
		MaxKeywordsPerApp: 10,
	},
}

// TrialDays is the free trial length for new subscriptions
const TrialDays = 3

// Subscription is a user's billing state, synced from the payment
// collaborator. The monitoring core only reads it for gating.
type Subscription struct {
	UserID               string     `json:"user_id" db:"user_id"`
	Email                string     `json:"email" db:"email"`
	Plan                 Plan       `json:"plan" db:"plan"`
	Status               string     `json:"status" db:"status"`
	StripeCustomerID     *string    `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id,omitempty" db:"stripe_subscription_id"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty" db:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive returns true when the subscription grants access
func (s *Subscription) IsActive() bool {
	return s.Status == "active" || s.Status == "trialing"
}

// GetPlanConfig returns the limits for the subscription's plan
func (s *Subscription) GetPlanConfig() PlanConfig {
	cfg, ok := DefaultPlans[s.Plan]
	if !ok {
		return DefaultPlans[PlanPro]
	}
	return cfg
}

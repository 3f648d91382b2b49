package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/geowatch/geowatch/internal/domain"
)

// SubscriptionRepository stores billing state in PostgreSQL. Rows are
// written by the payment webhook sync; the monitoring side only reads.
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// subscriptionRow represents the database row structure
type subscriptionRow struct {
	UserID               string     `db:"user_id"`
	Email                string     `db:"email"`
	Plan                 string     `db:"plan"`
	Status               string     `db:"status"`
	StripeCustomerID     *string    `db:"stripe_customer_id"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end"`
	CancelAtPeriodEnd    bool       `db:"cancel_at_period_end"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

func (r *subscriptionRow) toDomain() *domain.Subscription {
	return &domain.Subscription{
		UserID:               r.UserID,
		Email:                r.Email,
		Plan:                 domain.Plan(r.Plan),
		Status:               r.Status,
		StripeCustomerID:     r.StripeCustomerID,
		StripeSubscriptionID: r.StripeSubscriptionID,
		CurrentPeriodEnd:     r.CurrentPeriodEnd,
		CancelAtPeriodEnd:    r.CancelAtPeriodEnd,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// GetByUserID retrieves a user's subscription
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `
		SELECT user_id, email, plan, status, stripe_customer_id, stripe_subscription_id,
		       current_period_end, cancel_at_period_end, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`

	var row subscriptionRow
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError("subscription", userID)
		}
		return nil, err
	}

	return row.toDomain(), nil
}

// Upsert writes a subscription row, replacing any prior state for the
// user. Called from the billing webhook sync.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions
			(user_id, email, plan, status, stripe_customer_id, stripe_subscription_id,
			 current_period_end, cancel_at_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		sub.UserID,
		sub.Email,
		sub.Plan,
		sub.Status,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	return err
}

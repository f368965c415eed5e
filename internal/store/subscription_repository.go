/**
 * @description
 * PostgreSQL repository for subscription plans and business subscriptions.
 * Payment verification itself lives in the ledger repository because it must
 * share a transaction with commission recording.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyaparlink/directory-server/internal/domain"
)

var (
	ErrPlanNotFound          = errors.New("plan not found")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrActiveSubscriptionSet = errors.New("business already has an active subscription")
)

// SubscriptionRepository handles database operations for plans and subscriptions.
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ListPlans returns all selectable plans.
func (r *SubscriptionRepository) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, price, duration_days, features, is_active
		FROM plans WHERE is_active ORDER BY price
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.Features, &p.IsActive); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetPlan retrieves one plan by ID.
func (r *SubscriptionRepository) GetPlan(ctx context.Context, planID int64) (*domain.Plan, error) {
	var p domain.Plan
	err := r.db.QueryRow(ctx, `
		SELECT id, name, price, duration_days, features, is_active
		FROM plans WHERE id = $1
	`, planID).Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.Features, &p.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}

const subscriptionColumns = `
	s.id, s.business_id, s.plan_id, p.price, s.payment_status, s.is_active,
	s.affiliate_code, s.proof_path, s.period_end, s.created_at, s.updated_at
`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID, &sub.BusinessID, &sub.PlanID, &sub.PlanPrice, &sub.PaymentStatus,
		&sub.IsActive, &sub.AffiliateCode, &sub.ProofPath, &sub.PeriodEnd,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetSubscriptionByID retrieves one subscription.
func (r *SubscriptionRepository) GetSubscriptionByID(ctx context.Context, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `FROM subscriptions s JOIN plans p ON p.id = s.plan_id WHERE s.id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, subscriptionID))
}

// GetActiveSubscriptionByBusiness returns the business's current active subscription.
func (r *SubscriptionRepository) GetActiveSubscriptionByBusiness(ctx context.Context, businessID uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `FROM subscriptions s JOIN plans p ON p.id = s.plan_id
		WHERE s.business_id = $1 AND s.is_active`
	return scanSubscription(r.db.QueryRow(ctx, query, businessID))
}

// GetLatestSubscriptionByBusiness returns the most recent subscription for a business.
func (r *SubscriptionRepository) GetLatestSubscriptionByBusiness(ctx context.Context, businessID uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `FROM subscriptions s JOIN plans p ON p.id = s.plan_id
		WHERE s.business_id = $1 ORDER BY s.created_at DESC LIMIT 1`
	return scanSubscription(r.db.QueryRow(ctx, query, businessID))
}

// CreateSubscription inserts a subscription. Free plans are created verified
// and active with the period end already set; paid plans start pending. The
// partial unique index on active subscriptions enforces one per business.
func (r *SubscriptionRepository) CreateSubscription(
	ctx context.Context,
	businessID uuid.UUID,
	planID int64,
	affiliateCode *string,
	activateNow bool,
	periodEnd *time.Time,
) (*domain.Subscription, error) {
	var id uuid.UUID
	query := `
		INSERT INTO subscriptions (business_id, plan_id, affiliate_code, payment_status, is_active, period_end)
		VALUES ($1, $2, $3,
			CASE WHEN $4 THEN 'verified' ELSE 'pending' END,
			$4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, businessID, planID, affiliateCode, activateNow, periodEnd).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrActiveSubscriptionSet
		}
		return nil, err
	}
	return r.GetSubscriptionByID(ctx, id)
}

// AttachPaymentProof stores the uploaded proof path on a pending subscription
// owned by ownerID.
func (r *SubscriptionRepository) AttachPaymentProof(ctx context.Context, subscriptionID, ownerID uuid.UUID, proofPath string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE subscriptions s
		SET proof_path = $3, updated_at = NOW()
		FROM businesses b
		WHERE s.id = $1 AND b.id = s.business_id AND b.owner_id = $2
			AND s.payment_status = 'pending'
	`, subscriptionID, ownerID, proofPath)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// ListPendingVerification returns paid subscriptions awaiting staff review.
func (r *SubscriptionRepository) ListPendingVerification(ctx context.Context, limit int) ([]domain.Subscription, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT` + subscriptionColumns + `FROM subscriptions s JOIN plans p ON p.id = s.plan_id
		WHERE s.payment_status = 'pending' AND s.proof_path IS NOT NULL
		ORDER BY s.created_at
		LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(
			&sub.ID, &sub.BusinessID, &sub.PlanID, &sub.PlanPrice, &sub.PaymentStatus,
			&sub.IsActive, &sub.AffiliateCode, &sub.ProofPath, &sub.PeriodEnd,
			&sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// RejectPayment marks a pending subscription's payment as rejected.
func (r *SubscriptionRepository) RejectPayment(ctx context.Context, subscriptionID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `
		UPDATE subscriptions
		SET payment_status = 'rejected', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`, subscriptionID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// DeactivateExpired turns off subscriptions past their period end and returns
// how many were affected.
func (r *SubscriptionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE subscriptions
		SET is_active = false, updated_at = NOW()
		WHERE is_active AND period_end IS NOT NULL AND period_end < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

/**
 * @description
 * Transactional building blocks for the commission ledger. Payment
 * verification, referral creation and the earnings increment on the affiliate
 * profile must commit or roll back together, so this repository exposes a
 * single-transaction scope (InTx) with row-locked steps inside it.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vyaparlink/directory-server/internal/domain"
)

var ErrAffiliateNotFound = errors.New("affiliate profile not found")

// LedgerScope is the set of operations available inside one ledger transaction.
type LedgerScope interface {
	LockSubscription(ctx context.Context, subscriptionID uuid.UUID) (*domain.Subscription, *domain.Plan, error)
	MarkSubscriptionVerified(ctx context.Context, subscriptionID uuid.UUID, periodEnd *time.Time) error
	LockProfileByCode(ctx context.Context, code string) (*domain.AffiliateProfile, error)
	InsertReferral(ctx context.Context, affiliateID, subscriptionID uuid.UUID, amount decimal.Decimal) (bool, error)
	AddRecognizedEarnings(ctx context.Context, affiliateID uuid.UUID, amount decimal.Decimal) error
	EnqueueEvent(ctx context.Context, exchange, routingKey string, payload interface{}) error
}

// ledgerTxScope implements LedgerScope on top of one open pgx transaction.
type ledgerTxScope struct {
	tx pgx.Tx
}

// LedgerRepository runs ledger mutations inside a single database transaction.
type LedgerRepository struct {
	db *pgxpool.Pool
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// InTx runs fn inside one transaction, committing if fn returns nil.
func (r *LedgerRepository) InTx(ctx context.Context, fn func(ctx context.Context, scope LedgerScope) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &ledgerTxScope{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LockSubscription loads the subscription and its plan FOR UPDATE.
func (s *ledgerTxScope) LockSubscription(ctx context.Context, subscriptionID uuid.UUID) (*domain.Subscription, *domain.Plan, error) {
	var (
		sub  domain.Subscription
		plan domain.Plan
	)
	query := `
		SELECT s.id, s.business_id, s.plan_id, s.payment_status, s.is_active,
			s.affiliate_code, s.proof_path, s.period_end, s.created_at, s.updated_at,
			p.id, p.name, p.price, p.duration_days, p.features, p.is_active
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.id = $1
		FOR UPDATE OF s
	`
	err := s.tx.QueryRow(ctx, query, subscriptionID).Scan(
		&sub.ID, &sub.BusinessID, &sub.PlanID, &sub.PaymentStatus, &sub.IsActive,
		&sub.AffiliateCode, &sub.ProofPath, &sub.PeriodEnd, &sub.CreatedAt, &sub.UpdatedAt,
		&plan.ID, &plan.Name, &plan.Price, &plan.DurationDays, &plan.Features, &plan.IsActive,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, ErrSubscriptionNotFound
		}
		return nil, nil, err
	}
	sub.PlanPrice = plan.Price
	return &sub, &plan, nil
}

// MarkSubscriptionVerified activates the subscription through periodEnd.
func (s *ledgerTxScope) MarkSubscriptionVerified(ctx context.Context, subscriptionID uuid.UUID, periodEnd *time.Time) error {
	result, err := s.tx.Exec(ctx, `
		UPDATE subscriptions
		SET payment_status = 'verified', is_active = true, period_end = $2, updated_at = NOW()
		WHERE id = $1
	`, subscriptionID, periodEnd)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// LockProfileByCode loads an affiliate profile by code FOR UPDATE so the
// earnings increment cannot race with another ledger write.
func (s *ledgerTxScope) LockProfileByCode(ctx context.Context, code string) (*domain.AffiliateProfile, error) {
	query := `SELECT ` + affiliateProfileColumns + ` FROM affiliate_profiles WHERE affiliate_code = $1 FOR UPDATE`
	return scanAffiliateProfile(s.tx.QueryRow(ctx, query, code))
}

// InsertReferral creates the referral row for (affiliate, subscription).
// Returns false without error when the pair already has a referral.
func (s *ledgerTxScope) InsertReferral(ctx context.Context, affiliateID, subscriptionID uuid.UUID, amount decimal.Decimal) (bool, error) {
	result, err := s.tx.Exec(ctx, `
		INSERT INTO affiliate_referrals (affiliate_id, subscription_id, commission_amount, status)
		VALUES ($1, $2, $3, 'pending_approval')
		ON CONFLICT (affiliate_id, subscription_id) DO NOTHING
	`, affiliateID, subscriptionID, amount)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

// AddRecognizedEarnings increments the cached total and pending earnings.
func (s *ledgerTxScope) AddRecognizedEarnings(ctx context.Context, affiliateID uuid.UUID, amount decimal.Decimal) error {
	result, err := s.tx.Exec(ctx, `
		UPDATE affiliate_profiles
		SET total_earnings = total_earnings + $2,
			pending_earnings = pending_earnings + $2,
			updated_at = NOW()
		WHERE id = $1
	`, affiliateID, amount)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAffiliateNotFound
	}
	return nil
}

// EnqueueEvent inserts an outbox event in the same transaction.
func (s *ledgerTxScope) EnqueueEvent(ctx context.Context, exchange, routingKey string, payload interface{}) error {
	return enqueueEventTx(ctx, s.tx, exchange, routingKey, payload)
}

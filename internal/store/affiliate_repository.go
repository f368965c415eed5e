/**
 * @description
 * PostgreSQL repository for affiliate profiles, referrals and payouts.
 *
 * The referral and payment tables are the source of truth for balances; the
 * cached earnings columns on affiliate_profiles are refreshed here but never
 * read for payout decisions.
 */
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vyaparlink/directory-server/internal/domain"
)

var (
	ErrCodeTaken        = errors.New("affiliate code already in use")
	ErrAlreadyAffiliate = errors.New("affiliate application already exists")
	ErrReferralNotFound = errors.New("referral not found")
	ErrPaymentNotFound  = errors.New("affiliate payment not found")
	ErrPayoutInFlight   = errors.New("a payout request is already being processed")
)

// AffiliateRepository handles database operations for the affiliate program.
type AffiliateRepository struct {
	db *pgxpool.Pool
}

// NewAffiliateRepository creates a new affiliate repository.
func NewAffiliateRepository(db *pgxpool.Pool) *AffiliateRepository {
	return &AffiliateRepository{db: db}
}

const affiliateProfileColumns = `
	id, user_id, status, promotion_strategy, affiliate_code,
	account_holder_name, bank_name, account_number, ifsc_code,
	aadhar_card_path, pan_card_path,
	total_earnings, pending_earnings, paid_earnings,
	created_at, updated_at
`

func scanAffiliateProfile(row pgx.Row) (*domain.AffiliateProfile, error) {
	var p domain.AffiliateProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Status, &p.PromotionStrategy, &p.AffiliateCode,
		&p.AccountHolderName, &p.BankName, &p.AccountNumber, &p.IFSCCode,
		&p.AadharCardPath, &p.PANCardPath,
		&p.TotalEarnings, &p.PendingEarnings, &p.PaidEarnings,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAffiliateNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetProfileByUserID retrieves a user's affiliate profile.
func (r *AffiliateRepository) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.AffiliateProfile, error) {
	query := `SELECT ` + affiliateProfileColumns + ` FROM affiliate_profiles WHERE user_id = $1`
	return scanAffiliateProfile(r.db.QueryRow(ctx, query, userID))
}

// GetProfileByID retrieves an affiliate profile by its ID.
func (r *AffiliateRepository) GetProfileByID(ctx context.Context, profileID uuid.UUID) (*domain.AffiliateProfile, error) {
	query := `SELECT ` + affiliateProfileColumns + ` FROM affiliate_profiles WHERE id = $1`
	return scanAffiliateProfile(r.db.QueryRow(ctx, query, profileID))
}

// CreateApplication inserts a pending application, or resets a rejected one
// back to pending so the user can re-apply. Pending and approved applications
// are left untouched.
func (r *AffiliateRepository) CreateApplication(ctx context.Context, userID uuid.UUID, strategy string) (*domain.AffiliateProfile, error) {
	query := `
		INSERT INTO affiliate_profiles (user_id, status, promotion_strategy)
		VALUES ($1, 'pending', $2)
		ON CONFLICT (user_id) DO UPDATE SET
			status = 'pending',
			promotion_strategy = EXCLUDED.promotion_strategy,
			updated_at = NOW()
		WHERE affiliate_profiles.status = 'rejected'
		RETURNING ` + affiliateProfileColumns
	profile, err := scanAffiliateProfile(r.db.QueryRow(ctx, query, userID, strategy))
	if err != nil {
		if errors.Is(err, ErrAffiliateNotFound) {
			// The conflict update matched an existing non-rejected application.
			return nil, ErrAlreadyAffiliate
		}
		return nil, err
	}
	return profile, nil
}

// UpdateBankDetails stores the four payout bank fields.
func (r *AffiliateRepository) UpdateBankDetails(ctx context.Context, userID uuid.UUID, req domain.BankDetailsRequest) (*domain.AffiliateProfile, error) {
	query := `
		UPDATE affiliate_profiles
		SET account_holder_name = $2, bank_name = $3, account_number = $4, ifsc_code = $5, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + affiliateProfileColumns
	return scanAffiliateProfile(r.db.QueryRow(ctx, query, userID,
		req.AccountHolderName, req.BankName, req.AccountNumber, req.IFSCCode))
}

// UpdateKYCDocuments stores the identity document paths.
func (r *AffiliateRepository) UpdateKYCDocuments(ctx context.Context, userID uuid.UUID, req domain.KYCDocumentsRequest) (*domain.AffiliateProfile, error) {
	query := `
		UPDATE affiliate_profiles
		SET aadhar_card_path = COALESCE(NULLIF($2, ''), aadhar_card_path),
			pan_card_path = COALESCE(NULLIF($3, ''), pan_card_path),
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + affiliateProfileColumns
	return scanAffiliateProfile(r.db.QueryRow(ctx, query, userID, req.AadharCardPath, req.PANCardPath))
}

// AssignAffiliateCode approves a pending profile and assigns its code. The
// WHERE clause makes the assignment a no-op when a code already exists, so
// repeated approvals never rotate an affiliate's code.
func (r *AffiliateRepository) AssignAffiliateCode(ctx context.Context, profileID uuid.UUID, code string) (*domain.AffiliateProfile, error) {
	query := `
		UPDATE affiliate_profiles
		SET status = 'approved', affiliate_code = $2, updated_at = NOW()
		WHERE id = $1 AND affiliate_code IS NULL
		RETURNING ` + affiliateProfileColumns
	profile, err := scanAffiliateProfile(r.db.QueryRow(ctx, query, profileID, code))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrCodeTaken
		}
		if errors.Is(err, ErrAffiliateNotFound) {
			// Either the profile is missing or it already carries a code.
			return r.GetProfileByID(ctx, profileID)
		}
		return nil, err
	}
	return profile, nil
}

// SetStatus transitions a profile's lifecycle state without touching its code.
func (r *AffiliateRepository) SetStatus(ctx context.Context, profileID uuid.UUID, status domain.AffiliateStatus) error {
	result, err := r.db.Exec(ctx, `
		UPDATE affiliate_profiles SET status = $2, updated_at = NOW() WHERE id = $1
	`, profileID, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAffiliateNotFound
	}
	return nil
}

// BalanceComponents returns the two aggregates the available balance derives
// from: the sum of approved referral commissions and the sum of completed
// payout amounts.
func (r *AffiliateRepository) BalanceComponents(ctx context.Context, affiliateID uuid.UUID) (approved, paid decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(commission_amount) FROM affiliate_referrals
				WHERE affiliate_id = $1 AND status = 'approved'), 0),
			COALESCE((SELECT SUM(amount) FROM affiliate_payments
				WHERE affiliate_id = $1 AND status = 'completed'), 0)
	`
	err = r.db.QueryRow(ctx, query, affiliateID).Scan(&approved, &paid)
	return approved, paid, err
}

// ListReferralsByAffiliate returns an affiliate's referrals, newest first.
func (r *AffiliateRepository) ListReferralsByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]domain.AffiliateReferral, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ar.id, ar.affiliate_id, ar.subscription_id, COALESCE(b.name, ''),
			ar.commission_amount, ar.status, ar.created_at
		FROM affiliate_referrals ar
		JOIN subscriptions s ON s.id = ar.subscription_id
		LEFT JOIN businesses b ON b.id = s.business_id
		WHERE ar.affiliate_id = $1
		ORDER BY ar.created_at DESC
	`, affiliateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []domain.AffiliateReferral
	for rows.Next() {
		var ref domain.AffiliateReferral
		if err := rows.Scan(&ref.ID, &ref.AffiliateID, &ref.SubscriptionID, &ref.BusinessName,
			&ref.CommissionAmount, &ref.Status, &ref.CreatedAt); err != nil {
			return nil, err
		}
		referrals = append(referrals, ref)
	}
	return referrals, rows.Err()
}

// ReferralStats returns the referral count and the number of distinct
// businesses an affiliate has referred.
func (r *AffiliateRepository) ReferralStats(ctx context.Context, affiliateID uuid.UUID) (total int, businesses int, err error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT s.business_id)
		FROM affiliate_referrals ar
		JOIN subscriptions s ON s.id = ar.subscription_id
		WHERE ar.affiliate_id = $1
	`
	err = r.db.QueryRow(ctx, query, affiliateID).Scan(&total, &businesses)
	return total, businesses, err
}

// SetReferralStatus approves or rejects a pending referral.
func (r *AffiliateRepository) SetReferralStatus(ctx context.Context, referralID uuid.UUID, status domain.ReferralStatus) (*domain.AffiliateReferral, error) {
	var ref domain.AffiliateReferral
	query := `
		UPDATE affiliate_referrals
		SET status = $2
		WHERE id = $1 AND status = 'pending_approval'
		RETURNING id, affiliate_id, subscription_id, commission_amount, status, created_at
	`
	err := r.db.QueryRow(ctx, query, referralID, status).Scan(
		&ref.ID, &ref.AffiliateID, &ref.SubscriptionID, &ref.CommissionAmount, &ref.Status, &ref.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &ref, nil
}

// CreatePayout inserts a processing payout. The partial unique index on
// processing payouts rejects a second in-flight request for the same
// affiliate.
func (r *AffiliateRepository) CreatePayout(ctx context.Context, affiliateID uuid.UUID, amount decimal.Decimal) (*domain.AffiliatePayment, error) {
	var payment domain.AffiliatePayment
	query := `
		INSERT INTO affiliate_payments (affiliate_id, amount, status)
		VALUES ($1, $2, 'processing')
		RETURNING id, affiliate_id, amount, status, transaction_id, notes, payment_date
	`
	err := r.db.QueryRow(ctx, query, affiliateID, amount).Scan(
		&payment.ID, &payment.AffiliateID, &payment.Amount, &payment.Status,
		&payment.TransactionID, &payment.Notes, &payment.PaymentDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrPayoutInFlight
		}
		return nil, err
	}
	return &payment, nil
}

// ListPaymentsByAffiliate returns an affiliate's payout history, newest first.
func (r *AffiliateRepository) ListPaymentsByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]domain.AffiliatePayment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, affiliate_id, amount, status, transaction_id, notes, payment_date
		FROM affiliate_payments
		WHERE affiliate_id = $1
		ORDER BY payment_date DESC
	`, affiliateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.AffiliatePayment
	for rows.Next() {
		var p domain.AffiliatePayment
		if err := rows.Scan(&p.ID, &p.AffiliateID, &p.Amount, &p.Status,
			&p.TransactionID, &p.Notes, &p.PaymentDate); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// CompletePayout marks a processing payout completed, assigns the transaction
// reference and refreshes the affiliate's cached earnings in the same
// transaction.
func (r *AffiliateRepository) CompletePayout(ctx context.Context, paymentID uuid.UUID, transactionID string) (*domain.AffiliatePayment, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var payment domain.AffiliatePayment
	query := `
		UPDATE affiliate_payments
		SET status = 'completed',
			transaction_id = COALESCE(transaction_id, $2)
		WHERE id = $1 AND status = 'processing'
		RETURNING id, affiliate_id, amount, status, transaction_id, notes, payment_date
	`
	err = tx.QueryRow(ctx, query, paymentID, transactionID).Scan(
		&payment.ID, &payment.AffiliateID, &payment.Amount, &payment.Status,
		&payment.TransactionID, &payment.Notes, &payment.PaymentDate,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if err := refreshEarningsCacheTx(ctx, tx, payment.AffiliateID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &payment, nil
}

// HoldPayout parks a processing payout.
func (r *AffiliateRepository) HoldPayout(ctx context.Context, paymentID uuid.UUID, notes string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE affiliate_payments
		SET status = 'on_hold', notes = $2
		WHERE id = $1 AND status = 'processing'
	`, paymentID, notes)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// ListProfileIDs returns all affiliate profile IDs, used by the nightly
// earnings-cache refresh.
func (r *AffiliateRepository) ListProfileIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM affiliate_profiles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RefreshEarningsCache recomputes the cached earnings columns from the
// referral and payment tables and reports whether they drifted.
func (r *AffiliateRepository) RefreshEarningsCache(ctx context.Context, affiliateID uuid.UUID) (drifted bool, err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var oldTotal, oldPending, oldPaid, newTotal, newPaid decimal.Decimal
	query := `
		SELECT p.total_earnings, p.pending_earnings, p.paid_earnings,
			COALESCE((SELECT SUM(commission_amount) FROM affiliate_referrals
				WHERE affiliate_id = $1 AND status <> 'rejected'), 0),
			COALESCE((SELECT SUM(amount) FROM affiliate_payments
				WHERE affiliate_id = $1 AND status = 'completed'), 0)
		FROM affiliate_profiles p
		WHERE p.id = $1
		FOR UPDATE OF p
	`
	if err := tx.QueryRow(ctx, query, affiliateID).Scan(&oldTotal, &oldPending, &oldPaid, &newTotal, &newPaid); err != nil {
		if err == pgx.ErrNoRows {
			return false, ErrAffiliateNotFound
		}
		return false, err
	}

	newPending := newTotal.Sub(newPaid)
	if newPending.IsNegative() {
		newPending = decimal.Zero
	}
	drifted = !oldTotal.Equal(newTotal) || !oldPending.Equal(newPending) || !oldPaid.Equal(newPaid)

	_, err = tx.Exec(ctx, `
		UPDATE affiliate_profiles
		SET total_earnings = $2, pending_earnings = $3, paid_earnings = $4, updated_at = NOW()
		WHERE id = $1
	`, affiliateID, newTotal, newPending, newPaid)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return drifted, nil
}

func refreshEarningsCacheTx(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE affiliate_profiles p
		SET total_earnings = d.total,
			pending_earnings = GREATEST(d.total - d.paid, 0),
			paid_earnings = d.paid,
			updated_at = NOW()
		FROM (
			SELECT
				COALESCE((SELECT SUM(commission_amount) FROM affiliate_referrals
					WHERE affiliate_id = $1 AND status <> 'rejected'), 0) AS total,
				COALESCE((SELECT SUM(amount) FROM affiliate_payments
					WHERE affiliate_id = $1 AND status = 'completed'), 0) AS paid
		) d
		WHERE p.id = $1
	`, affiliateID)
	return err
}

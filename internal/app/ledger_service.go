/**
 * @description
 * The commission ledger. Records a referral commission when a subscription
 * payment is verified, and derives payout balances from the referral and
 * payment tables.
 *
 * Commission is recognized into the cached earnings fields at referral
 * creation, but only approved referrals count towards the payable balance.
 * The cached fields are never read for payout decisions; the balance is
 * always recomputed from the source tables.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vyaparlink/directory-server/internal/domain"
	"github.com/vyaparlink/directory-server/internal/store"
)

// Business constants of the affiliate program.
var (
	// CommissionRate is the fixed referral commission: 20% of the plan price.
	CommissionRate = decimal.NewFromFloat(0.20)
	// PayoutThreshold is the minimum available balance for a payout request.
	PayoutThreshold = decimal.NewFromInt(5000)
)

var (
	ErrPaymentNotPending    = errors.New("subscription payment is not pending verification")
	ErrAffiliateNotApproved = errors.New("affiliate is not approved")
	ErrBankDetailsMissing   = errors.New("bank details are incomplete")
	ErrInsufficientBalance  = errors.New("available balance is below the payout threshold")
	ErrPayoutBusy           = errors.New("another payout request is in progress")
)

// LedgerStore runs ledger mutations in a single database transaction.
type LedgerStore interface {
	InTx(ctx context.Context, fn func(ctx context.Context, scope store.LedgerScope) error) error
}

// PayoutStore is the subset of the affiliate repository the payout flow needs.
type PayoutStore interface {
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.AffiliateProfile, error)
	BalanceComponents(ctx context.Context, affiliateID uuid.UUID) (approved, paid decimal.Decimal, err error)
	CreatePayout(ctx context.Context, affiliateID uuid.UUID, amount decimal.Decimal) (*domain.AffiliatePayment, error)
	RefreshEarningsCache(ctx context.Context, affiliateID uuid.UUID) (bool, error)
}

// PayoutLocker serializes payout requests per affiliate.
type PayoutLocker interface {
	// Acquire takes the per-affiliate payout lock. It returns false when the
	// lock is already held, and a release function otherwise.
	Acquire(ctx context.Context, affiliateID uuid.UUID) (release func(), acquired bool, err error)
}

// EventEnqueuer inserts events into the transactional outbox.
type EventEnqueuer interface {
	Enqueue(ctx context.Context, exchange, routingKey string, payload interface{}) error
}

// LedgerMetrics counts ledger activity for the metrics endpoint.
type LedgerMetrics interface {
	CommissionRecorded()
	PayoutRequested(outcome string)
}

// LedgerService implements commission recording and payout requests.
type LedgerService struct {
	ledger  LedgerStore
	payouts PayoutStore
	locker  PayoutLocker
	outbox  EventEnqueuer
	metrics LedgerMetrics
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(ledger LedgerStore, payouts PayoutStore, locker PayoutLocker, outbox EventEnqueuer, metrics LedgerMetrics) *LedgerService {
	return &LedgerService{ledger: ledger, payouts: payouts, locker: locker, outbox: outbox, metrics: metrics}
}

// CommissionFor computes the referral commission for a plan price, rounded to
// currency precision. The amount is fixed at referral creation and never
// recomputed.
func CommissionFor(planPrice decimal.Decimal) decimal.Decimal {
	return planPrice.Mul(CommissionRate).Round(2)
}

// AvailableBalance derives the payable balance from its two components,
// floored at zero. A negative raw difference means completed payouts exceed
// approved commissions, which is a ledger invariant violation.
func AvailableBalance(approved, paid decimal.Decimal) decimal.Decimal {
	balance := approved.Sub(paid)
	if balance.IsNegative() {
		log.Printf("ERROR: ledger invariant violated: completed payouts %s exceed approved commissions %s", paid, approved)
		return decimal.Zero
	}
	return balance
}

// VerifySubscriptionPayment is the staff action that marks a subscription's
// payment verified and activates it. Commission recording happens inside the
// same transaction: a verified subscription carrying a valid affiliate code
// produces exactly one referral per (affiliate, subscription) pair, and an
// unknown code is skipped without error.
func (s *LedgerService) VerifySubscriptionPayment(ctx context.Context, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	var verified *domain.Subscription

	err := s.ledger.InTx(ctx, func(ctx context.Context, scope store.LedgerScope) error {
		sub, plan, err := scope.LockSubscription(ctx, subscriptionID)
		if err != nil {
			return err
		}

		if sub.PaymentStatus == domain.PaymentVerified {
			// Re-firing the verification is a no-op; the referral uniqueness
			// below also guards against double counting.
			verified = sub
			return nil
		}
		if sub.PaymentStatus != domain.PaymentPending {
			return ErrPaymentNotPending
		}

		periodEnd := time.Now().UTC().AddDate(0, 0, plan.DurationDays)
		if err := scope.MarkSubscriptionVerified(ctx, sub.ID, &periodEnd); err != nil {
			return err
		}
		sub.PaymentStatus = domain.PaymentVerified
		sub.IsActive = true
		sub.PeriodEnd = &periodEnd
		verified = sub

		if sub.AffiliateCode == nil || *sub.AffiliateCode == "" {
			return nil
		}

		if err := s.recordCommission(ctx, scope, sub, plan); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}

// recordCommission creates the referral and recognizes earnings for the
// affiliate identified by the subscription's code. An unknown or stale code
// is deliberately swallowed: the code is advisory, never validated when the
// subscriber enters it.
func (s *LedgerService) recordCommission(ctx context.Context, scope store.LedgerScope, sub *domain.Subscription, plan *domain.Plan) error {
	profile, err := scope.LockProfileByCode(ctx, *sub.AffiliateCode)
	if err != nil {
		if errors.Is(err, store.ErrAffiliateNotFound) {
			log.Printf("WARN: subscription %s carries unknown affiliate code %q; no commission recorded", sub.ID, *sub.AffiliateCode)
			return nil
		}
		return fmt.Errorf("failed to look up affiliate for commission: %w", err)
	}

	commission := CommissionFor(plan.Price)
	created, err := scope.InsertReferral(ctx, profile.ID, sub.ID, commission)
	if err != nil {
		return fmt.Errorf("failed to create referral: %w", err)
	}
	if !created {
		// A referral for this (affiliate, subscription) pair already exists.
		return nil
	}

	if err := scope.AddRecognizedEarnings(ctx, profile.ID, commission); err != nil {
		return fmt.Errorf("failed to recognize earnings: %w", err)
	}

	event := domain.CommissionRecordedEvent{
		AffiliateID:      profile.ID,
		SubscriptionID:   sub.ID,
		CommissionAmount: commission,
		Timestamp:        time.Now().UTC(),
	}
	if err := scope.EnqueueEvent(ctx, domain.EventsExchange, domain.CommissionRecordedKey, event); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.CommissionRecorded()
	}
	return nil
}

// AvailableBalanceFor recomputes an affiliate's payable balance from the
// referral and payment tables.
func (s *LedgerService) AvailableBalanceFor(ctx context.Context, affiliateID uuid.UUID) (decimal.Decimal, error) {
	approved, paid, err := s.payouts.BalanceComponents(ctx, affiliateID)
	if err != nil {
		return decimal.Zero, err
	}
	return AvailableBalance(approved, paid), nil
}

// RequestPayout creates a processing payout for the affiliate's full
// available balance, captured at request time. Requests are serialized per
// affiliate: the distributed lock is the first line of defense and the
// partial unique index on processing payouts is the second.
func (s *LedgerService) RequestPayout(ctx context.Context, userID uuid.UUID) (*domain.AffiliatePayment, error) {
	profile, err := s.payouts.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Status != domain.AffiliateApproved {
		s.countPayout("rejected")
		return nil, ErrAffiliateNotApproved
	}
	if !profile.HasBankDetails() {
		s.countPayout("rejected")
		return nil, ErrBankDetailsMissing
	}

	release, acquired, err := s.locker.Acquire(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.countPayout("busy")
		return nil, ErrPayoutBusy
	}
	defer release()

	balance, err := s.AvailableBalanceFor(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(PayoutThreshold) {
		s.countPayout("rejected")
		return nil, ErrInsufficientBalance
	}

	payment, err := s.payouts.CreatePayout(ctx, profile.ID, balance)
	if err != nil {
		if errors.Is(err, store.ErrPayoutInFlight) {
			s.countPayout("busy")
			return nil, ErrPayoutBusy
		}
		return nil, err
	}

	if _, err := s.payouts.RefreshEarningsCache(ctx, profile.ID); err != nil {
		log.Printf("WARN: failed to refresh earnings cache for affiliate %s: %v", profile.ID, err)
	}

	event := domain.PayoutEvent{
		AffiliateID: profile.ID,
		PaymentID:   payment.ID,
		Amount:      payment.Amount,
		Status:      payment.Status,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.outbox.Enqueue(ctx, domain.EventsExchange, domain.PayoutRequestedKey, event); err != nil {
		log.Printf("WARN: failed to enqueue payout requested event for payment %s: %v", payment.ID, err)
	}

	s.countPayout("accepted")
	return payment, nil
}

func (s *LedgerService) countPayout(outcome string) {
	if s.metrics != nil {
		s.metrics.PayoutRequested(outcome)
	}
}

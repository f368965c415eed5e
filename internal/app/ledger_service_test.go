package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vyaparlink/directory-server/internal/domain"
	"github.com/vyaparlink/directory-server/internal/store"
)

type ledgerScopeStub struct {
	sub  *domain.Subscription
	plan *domain.Plan

	profile       *domain.AffiliateProfile
	profileErr    error
	referralDupes bool

	verifiedID      *uuid.UUID
	verifiedEnd     *time.Time
	insertedAmounts []decimal.Decimal
	earnings        []decimal.Decimal
	events          []string
}

func (s *ledgerScopeStub) LockSubscription(ctx context.Context, subscriptionID uuid.UUID) (*domain.Subscription, *domain.Plan, error) {
	if s.sub == nil {
		return nil, nil, store.ErrSubscriptionNotFound
	}
	return s.sub, s.plan, nil
}

func (s *ledgerScopeStub) MarkSubscriptionVerified(ctx context.Context, subscriptionID uuid.UUID, periodEnd *time.Time) error {
	s.verifiedID = &subscriptionID
	s.verifiedEnd = periodEnd
	return nil
}

func (s *ledgerScopeStub) LockProfileByCode(ctx context.Context, code string) (*domain.AffiliateProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *ledgerScopeStub) InsertReferral(ctx context.Context, affiliateID, subscriptionID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if s.referralDupes {
		return false, nil
	}
	s.insertedAmounts = append(s.insertedAmounts, amount)
	return true, nil
}

func (s *ledgerScopeStub) AddRecognizedEarnings(ctx context.Context, affiliateID uuid.UUID, amount decimal.Decimal) error {
	s.earnings = append(s.earnings, amount)
	return nil
}

func (s *ledgerScopeStub) EnqueueEvent(ctx context.Context, exchange, routingKey string, payload interface{}) error {
	s.events = append(s.events, routingKey)
	return nil
}

type ledgerStoreStub struct {
	scope *ledgerScopeStub
}

func (s *ledgerStoreStub) InTx(ctx context.Context, fn func(ctx context.Context, scope store.LedgerScope) error) error {
	return fn(ctx, s.scope)
}

type payoutStoreStub struct {
	profile  *domain.AffiliateProfile
	approved decimal.Decimal
	paid     decimal.Decimal

	payoutErr error
	payout    *domain.AffiliatePayment
	created   []decimal.Decimal
}

func (s *payoutStoreStub) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.AffiliateProfile, error) {
	if s.profile == nil {
		return nil, store.ErrAffiliateNotFound
	}
	return s.profile, nil
}

func (s *payoutStoreStub) BalanceComponents(ctx context.Context, affiliateID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	return s.approved, s.paid, nil
}

func (s *payoutStoreStub) CreatePayout(ctx context.Context, affiliateID uuid.UUID, amount decimal.Decimal) (*domain.AffiliatePayment, error) {
	if s.payoutErr != nil {
		return nil, s.payoutErr
	}
	s.created = append(s.created, amount)
	payment := &domain.AffiliatePayment{
		ID:          uuid.New(),
		AffiliateID: affiliateID,
		Amount:      amount,
		Status:      domain.PayoutProcessing,
		PaymentDate: time.Now(),
	}
	s.payout = payment
	return payment, nil
}

func (s *payoutStoreStub) RefreshEarningsCache(ctx context.Context, affiliateID uuid.UUID) (bool, error) {
	return false, nil
}

type lockerStub struct {
	busy     bool
	released bool
}

func (l *lockerStub) Acquire(ctx context.Context, affiliateID uuid.UUID) (func(), bool, error) {
	if l.busy {
		return nil, false, nil
	}
	return func() { l.released = true }, true, nil
}

type enqueuerStub struct {
	keys []string
}

func (e *enqueuerStub) Enqueue(ctx context.Context, exchange, routingKey string, payload interface{}) error {
	e.keys = append(e.keys, routingKey)
	return nil
}

func pendingSubscription(code string) (*domain.Subscription, *domain.Plan) {
	plan := &domain.Plan{
		ID:           2,
		Name:         "Standard",
		Price:        decimal.NewFromInt(5000),
		DurationDays: 180,
		IsActive:     true,
	}
	sub := &domain.Subscription{
		ID:            uuid.New(),
		BusinessID:    uuid.New(),
		PlanID:        plan.ID,
		PlanPrice:     plan.Price,
		PaymentStatus: domain.PaymentPending,
	}
	if code != "" {
		sub.AffiliateCode = &code
	}
	return sub, plan
}

func approvedProfile() *domain.AffiliateProfile {
	code := "AFFCODE1"
	return &domain.AffiliateProfile{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Status:            domain.AffiliateApproved,
		AffiliateCode:     &code,
		AccountHolderName: "Asha Rao",
		BankName:          "State Bank",
		AccountNumber:     "000111222333",
		IFSCCode:          "SBIN0001234",
	}
}

func TestCommissionForIsTwentyPercentRounded(t *testing.T) {
	cases := []struct {
		price string
		want  string
	}{
		{"1000", "200"},
		{"5000", "1000"},
		{"999.99", "200"},
		{"0.01", "0"},
	}
	for _, tc := range cases {
		price, _ := decimal.NewFromString(tc.price)
		want, _ := decimal.NewFromString(tc.want)
		if got := CommissionFor(price); !got.Equal(want) {
			t.Fatalf("CommissionFor(%s): expected %s, got %s", tc.price, want, got)
		}
	}
}

func TestVerifyPaymentRecordsCommission(t *testing.T) {
	sub, plan := pendingSubscription("AFFCODE1")
	scope := &ledgerScopeStub{sub: sub, plan: plan, profile: approvedProfile()}
	svc := NewLedgerService(&ledgerStoreStub{scope: scope}, &payoutStoreStub{}, &lockerStub{}, &enqueuerStub{}, nil)

	verified, err := svc.VerifySubscriptionPayment(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if verified.PaymentStatus != domain.PaymentVerified || !verified.IsActive {
		t.Fatalf("expected verified active subscription, got %+v", verified)
	}
	if scope.verifiedEnd == nil {
		t.Fatal("expected a period end to be set")
	}

	wantCommission := decimal.NewFromInt(1000)
	if len(scope.insertedAmounts) != 1 || !scope.insertedAmounts[0].Equal(wantCommission) {
		t.Fatalf("expected one referral of %s, got %v", wantCommission, scope.insertedAmounts)
	}
	if len(scope.earnings) != 1 || !scope.earnings[0].Equal(wantCommission) {
		t.Fatalf("expected earnings increment of %s, got %v", wantCommission, scope.earnings)
	}
	if len(scope.events) != 1 || scope.events[0] != domain.CommissionRecordedKey {
		t.Fatalf("expected commission recorded event, got %v", scope.events)
	}
}

func TestVerifyPaymentWithoutCodeSkipsCommission(t *testing.T) {
	sub, plan := pendingSubscription("")
	scope := &ledgerScopeStub{sub: sub, plan: plan}
	svc := NewLedgerService(&ledgerStoreStub{scope: scope}, &payoutStoreStub{}, &lockerStub{}, &enqueuerStub{}, nil)

	if _, err := svc.VerifySubscriptionPayment(context.Background(), sub.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(scope.insertedAmounts) != 0 {
		t.Fatalf("expected no referral, got %v", scope.insertedAmounts)
	}
}

func TestVerifyPaymentUnknownCodeIsSwallowed(t *testing.T) {
	sub, plan := pendingSubscription("NOSUCHCD")
	scope := &ledgerScopeStub{sub: sub, plan: plan, profileErr: store.ErrAffiliateNotFound}
	svc := NewLedgerService(&ledgerStoreStub{scope: scope}, &payoutStoreStub{}, &lockerStub{}, &enqueuerStub{}, nil)

	verified, err := svc.VerifySubscriptionPayment(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("expected unknown code to be swallowed, got %v", err)
	}
	if verified.PaymentStatus != domain.PaymentVerified {
		t.Fatalf("expected subscription verified despite unknown code, got %s", verified.PaymentStatus)
	}
	if len(scope.insertedAmounts) != 0 || len(scope.earnings) != 0 {
		t.Fatal("expected no referral or earnings for an unknown code")
	}
}

func TestVerifyPaymentAlreadyVerifiedIsIdempotent(t *testing.T) {
	sub, plan := pendingSubscription("AFFCODE1")
	sub.PaymentStatus = domain.PaymentVerified
	scope := &ledgerScopeStub{sub: sub, plan: plan, profile: approvedProfile()}
	svc := NewLedgerService(&ledgerStoreStub{scope: scope}, &payoutStoreStub{}, &lockerStub{}, &enqueuerStub{}, nil)

	if _, err := svc.VerifySubscriptionPayment(context.Background(), sub.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if scope.verifiedID != nil {
		t.Fatal("expected no second verification write")
	}
	if len(scope.insertedAmounts) != 0 {
		t.Fatal("expected no duplicate referral")
	}
}

func TestVerifyPaymentRejectedIsNotPending(t *testing.T) {
	sub, plan := pendingSubscription("AFFCODE1")
	sub.PaymentStatus = domain.PaymentRejected
	scope := &ledgerScopeStub{sub: sub, plan: plan}
	svc := NewLedgerService(&ledgerStoreStub{scope: scope}, &payoutStoreStub{}, &lockerStub{}, &enqueuerStub{}, nil)

	if _, err := svc.VerifySubscriptionPayment(context.Background(), sub.ID); !errors.Is(err, ErrPaymentNotPending) {
		t.Fatalf("expected ErrPaymentNotPending, got %v", err)
	}
}

func TestVerifyPaymentDuplicateReferralAddsNoEarnings(t *testing.T) {
	sub, plan := pendingSubscription("AFFCODE1")
	scope := &ledgerScopeStub{sub: sub, plan: plan, profile: approvedProfile(), referralDupes: true}
	svc := NewLedgerService(&ledgerStoreStub{scope: scope}, &payoutStoreStub{}, &lockerStub{}, &enqueuerStub{}, nil)

	if _, err := svc.VerifySubscriptionPayment(context.Background(), sub.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(scope.earnings) != 0 {
		t.Fatalf("expected no earnings increment for a duplicate referral, got %v", scope.earnings)
	}
}

func TestAvailableBalanceFloorsAtZero(t *testing.T) {
	approved := decimal.NewFromInt(100)
	paid := decimal.NewFromInt(250)
	if got := AvailableBalance(approved, paid); !got.IsZero() {
		t.Fatalf("expected zero balance, got %s", got)
	}
	if got := AvailableBalance(decimal.NewFromInt(1000), decimal.NewFromInt(200)); !got.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("expected 800, got %s", got)
	}
}

func TestRequestPayoutBelowThresholdIsRejected(t *testing.T) {
	payouts := &payoutStoreStub{
		profile:  approvedProfile(),
		approved: decimal.NewFromInt(1000),
		paid:     decimal.NewFromInt(200),
	}
	svc := NewLedgerService(&ledgerStoreStub{}, payouts, &lockerStub{}, &enqueuerStub{}, nil)

	_, err := svc.RequestPayout(context.Background(), payouts.profile.UserID)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance at balance 800, got %v", err)
	}
	if len(payouts.created) != 0 {
		t.Fatal("expected no payout below the threshold")
	}
}

func TestRequestPayoutAtThresholdCapturesFullBalance(t *testing.T) {
	payouts := &payoutStoreStub{
		profile:  approvedProfile(),
		approved: decimal.NewFromInt(5500),
		paid:     decimal.NewFromInt(200),
	}
	locker := &lockerStub{}
	outbox := &enqueuerStub{}
	svc := NewLedgerService(&ledgerStoreStub{}, payouts, locker, outbox, nil)

	payment, err := svc.RequestPayout(context.Background(), payouts.profile.UserID)
	if err != nil {
		t.Fatalf("expected payout to be accepted, got %v", err)
	}
	want := decimal.NewFromInt(5300)
	if !payment.Amount.Equal(want) {
		t.Fatalf("expected payout of %s, got %s", want, payment.Amount)
	}
	if !locker.released {
		t.Fatal("expected the payout lock to be released")
	}
	if len(outbox.keys) != 1 || outbox.keys[0] != domain.PayoutRequestedKey {
		t.Fatalf("expected payout requested event, got %v", outbox.keys)
	}
}

func TestRequestPayoutRejectionReasons(t *testing.T) {
	pendingProfile := approvedProfile()
	pendingProfile.Status = domain.AffiliatePending

	noBank := approvedProfile()
	noBank.IFSCCode = ""

	cases := []struct {
		name    string
		profile *domain.AffiliateProfile
		busy    bool
		wantErr error
	}{
		{"not approved", pendingProfile, false, ErrAffiliateNotApproved},
		{"missing bank details", noBank, false, ErrBankDetailsMissing},
		{"lock busy", approvedProfile(), true, ErrPayoutBusy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payouts := &payoutStoreStub{profile: tc.profile, approved: decimal.NewFromInt(9000)}
			svc := NewLedgerService(&ledgerStoreStub{}, payouts, &lockerStub{busy: tc.busy}, &enqueuerStub{}, nil)

			_, err := svc.RequestPayout(context.Background(), tc.profile.UserID)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRequestPayoutInFlightMapsToBusy(t *testing.T) {
	payouts := &payoutStoreStub{
		profile:   approvedProfile(),
		approved:  decimal.NewFromInt(9000),
		payoutErr: store.ErrPayoutInFlight,
	}
	svc := NewLedgerService(&ledgerStoreStub{}, payouts, &lockerStub{}, &enqueuerStub{}, nil)

	if _, err := svc.RequestPayout(context.Background(), payouts.profile.UserID); !errors.Is(err, ErrPayoutBusy) {
		t.Fatalf("expected ErrPayoutBusy, got %v", err)
	}
}

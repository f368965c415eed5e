/**
 * @description
 * Affiliate program flows outside the ledger itself: applications, bank
 * details, KYC documents, staff approval with one-time code assignment, and
 * the dashboard aggregate.
 */
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vyaparlink/directory-server/internal/domain"
	"github.com/vyaparlink/directory-server/internal/store"
)

const (
	affiliateCodeLength   = 8
	affiliateCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAssignMaxAttempts = 5
)

// AffiliateStore is the subset of the affiliate repository this service needs.
type AffiliateStore interface {
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.AffiliateProfile, error)
	GetProfileByID(ctx context.Context, profileID uuid.UUID) (*domain.AffiliateProfile, error)
	CreateApplication(ctx context.Context, userID uuid.UUID, strategy string) (*domain.AffiliateProfile, error)
	UpdateBankDetails(ctx context.Context, userID uuid.UUID, req domain.BankDetailsRequest) (*domain.AffiliateProfile, error)
	UpdateKYCDocuments(ctx context.Context, userID uuid.UUID, req domain.KYCDocumentsRequest) (*domain.AffiliateProfile, error)
	AssignAffiliateCode(ctx context.Context, profileID uuid.UUID, code string) (*domain.AffiliateProfile, error)
	SetStatus(ctx context.Context, profileID uuid.UUID, status domain.AffiliateStatus) error
	BalanceComponents(ctx context.Context, affiliateID uuid.UUID) (approved, paid decimal.Decimal, err error)
	ListReferralsByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]domain.AffiliateReferral, error)
	ReferralStats(ctx context.Context, affiliateID uuid.UUID) (total int, businesses int, err error)
	SetReferralStatus(ctx context.Context, referralID uuid.UUID, status domain.ReferralStatus) (*domain.AffiliateReferral, error)
	ListPaymentsByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]domain.AffiliatePayment, error)
	CompletePayout(ctx context.Context, paymentID uuid.UUID, transactionID string) (*domain.AffiliatePayment, error)
	HoldPayout(ctx context.Context, paymentID uuid.UUID, notes string) error
	RefreshEarningsCache(ctx context.Context, affiliateID uuid.UUID) (bool, error)
}

// AffiliateService provides affiliate program flows.
type AffiliateService struct {
	repo    AffiliateStore
	outbox  EventEnqueuer
	metrics LedgerMetrics
}

// NewAffiliateService creates a new affiliate service.
func NewAffiliateService(repo AffiliateStore, outbox EventEnqueuer, metrics LedgerMetrics) *AffiliateService {
	return &AffiliateService{repo: repo, outbox: outbox, metrics: metrics}
}

// Apply submits an affiliate application. Rejected applicants may re-apply;
// pending and approved profiles are returned unchanged.
func (s *AffiliateService) Apply(ctx context.Context, userID uuid.UUID, req domain.ApplyAffiliateRequest) (*domain.AffiliateProfile, error) {
	profile, err := s.repo.CreateApplication(ctx, userID, req.PromotionStrategy)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyAffiliate) {
			return s.repo.GetProfileByUserID(ctx, userID)
		}
		return nil, err
	}
	return profile, nil
}

// GetProfile returns the caller's affiliate profile.
func (s *AffiliateService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.AffiliateProfile, error) {
	return s.repo.GetProfileByUserID(ctx, userID)
}

// UpdateBankDetails stores payout bank details.
func (s *AffiliateService) UpdateBankDetails(ctx context.Context, userID uuid.UUID, req domain.BankDetailsRequest) (*domain.AffiliateProfile, error) {
	if req.AccountHolderName == "" || req.BankName == "" || req.AccountNumber == "" || req.IFSCCode == "" {
		return nil, ErrBankDetailsMissing
	}
	return s.repo.UpdateBankDetails(ctx, userID, req)
}

// UploadKYCDocuments stores identity document paths.
func (s *AffiliateService) UploadKYCDocuments(ctx context.Context, userID uuid.UUID, req domain.KYCDocumentsRequest) (*domain.AffiliateProfile, error) {
	return s.repo.UpdateKYCDocuments(ctx, userID, req)
}

// Dashboard aggregates profile, referral stats and the recomputed balance.
func (s *AffiliateService) Dashboard(ctx context.Context, userID uuid.UUID) (*domain.AffiliateDashboard, error) {
	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, businesses, err := s.repo.ReferralStats(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	approved, paid, err := s.repo.BalanceComponents(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	balance := AvailableBalance(approved, paid)

	return &domain.AffiliateDashboard{
		Profile:          profile,
		TotalReferrals:   total,
		BusinessCount:    businesses,
		AvailableBalance: balance,
		PayoutEligible:   balance.GreaterThanOrEqual(PayoutThreshold) && profile.HasBankDetails(),
	}, nil
}

// ListReferrals returns the caller's referrals.
func (s *AffiliateService) ListReferrals(ctx context.Context, userID uuid.UUID) ([]domain.AffiliateReferral, error) {
	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListReferralsByAffiliate(ctx, profile.ID)
}

// ListPayments returns the caller's payout history.
func (s *AffiliateService) ListPayments(ctx context.Context, userID uuid.UUID) ([]domain.AffiliatePayment, error) {
	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPaymentsByAffiliate(ctx, profile.ID)
}

// ApproveAffiliate is the staff action that approves an application and
// assigns the affiliate code. The code is generated once; approving an
// already-coded profile returns it unchanged. Collisions with existing codes
// are retried with a fresh code.
func (s *AffiliateService) ApproveAffiliate(ctx context.Context, profileID uuid.UUID) (*domain.AffiliateProfile, error) {
	current, err := s.repo.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if current.AffiliateCode != nil {
		if current.Status != domain.AffiliateApproved {
			if err := s.repo.SetStatus(ctx, profileID, domain.AffiliateApproved); err != nil {
				return nil, err
			}
			return s.repo.GetProfileByID(ctx, profileID)
		}
		return current, nil
	}

	for attempt := 0; attempt < codeAssignMaxAttempts; attempt++ {
		code, err := generateAffiliateCode()
		if err != nil {
			return nil, err
		}
		profile, err := s.repo.AssignAffiliateCode(ctx, profileID, code)
		if err != nil {
			if errors.Is(err, store.ErrCodeTaken) {
				continue
			}
			return nil, err
		}
		return profile, nil
	}
	return nil, fmt.Errorf("failed to assign a unique affiliate code after %d attempts", codeAssignMaxAttempts)
}

// RejectAffiliate is the staff action that rejects an application.
func (s *AffiliateService) RejectAffiliate(ctx context.Context, profileID uuid.UUID) error {
	return s.repo.SetStatus(ctx, profileID, domain.AffiliateRejected)
}

// SuspendAffiliate is the staff action that suspends an approved affiliate.
func (s *AffiliateService) SuspendAffiliate(ctx context.Context, profileID uuid.UUID) error {
	return s.repo.SetStatus(ctx, profileID, domain.AffiliateSuspended)
}

// ApproveReferral is the staff action that makes a referral's commission
// payable. The cached earnings fields are refreshed afterwards so dashboards
// converge without waiting for the nightly job.
func (s *AffiliateService) ApproveReferral(ctx context.Context, referralID uuid.UUID) (*domain.AffiliateReferral, error) {
	referral, err := s.repo.SetReferralStatus(ctx, referralID, domain.ReferralApproved)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.RefreshEarningsCache(ctx, referral.AffiliateID); err != nil {
		log.Printf("WARN: failed to refresh earnings cache for affiliate %s: %v", referral.AffiliateID, err)
	}
	return referral, nil
}

// RejectReferral is the staff action that voids a pending referral.
func (s *AffiliateService) RejectReferral(ctx context.Context, referralID uuid.UUID) (*domain.AffiliateReferral, error) {
	referral, err := s.repo.SetReferralStatus(ctx, referralID, domain.ReferralRejected)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.RefreshEarningsCache(ctx, referral.AffiliateID); err != nil {
		log.Printf("WARN: failed to refresh earnings cache for affiliate %s: %v", referral.AffiliateID, err)
	}
	return referral, nil
}

// CompletePayout is the staff action that settles a processing payout.
func (s *AffiliateService) CompletePayout(ctx context.Context, paymentID uuid.UUID, transactionID string) (*domain.AffiliatePayment, error) {
	if transactionID == "" {
		transactionID = fmt.Sprintf("TXN-%s", uuid.New())
	}
	payment, err := s.repo.CompletePayout(ctx, paymentID, transactionID)
	if err != nil {
		return nil, err
	}

	event := domain.PayoutEvent{
		AffiliateID: payment.AffiliateID,
		PaymentID:   payment.ID,
		Amount:      payment.Amount,
		Status:      payment.Status,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.outbox.Enqueue(ctx, domain.EventsExchange, domain.PayoutCompletedKey, event); err != nil {
		log.Printf("WARN: failed to enqueue payout completed event for payment %s: %v", payment.ID, err)
	}
	return payment, nil
}

// HoldPayout is the staff action that parks a processing payout.
func (s *AffiliateService) HoldPayout(ctx context.Context, paymentID uuid.UUID, notes string) error {
	return s.repo.HoldPayout(ctx, paymentID, notes)
}

// generateAffiliateCode returns an 8-character uppercase alphanumeric code.
func generateAffiliateCode() (string, error) {
	buf := make([]byte, affiliateCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = affiliateCodeAlphabet[int(b)%len(affiliateCodeAlphabet)]
	}
	return string(buf), nil
}

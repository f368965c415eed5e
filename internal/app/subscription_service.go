/**
 * @description
 * Subscription flows: plan listing, plan selection and payment proof upload.
 * Free plans activate immediately; paid plans wait in pending until staff
 * verify the payment, which is the ledger service's job.
 */
package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vyaparlink/directory-server/internal/domain"
	"github.com/vyaparlink/directory-server/internal/store"
)

var (
	ErrPlanInactive     = errors.New("plan is not available")
	ErrProofTooLarge    = errors.New("payment proof exceeds the size limit")
	ErrProofBadType     = errors.New("payment proof must be an image or a PDF")
	ErrNotBusinessOwner = errors.New("business does not belong to this user")
)

var allowedProofTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// SubscriptionStore is the subset of the subscription repository this service needs.
type SubscriptionStore interface {
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	GetPlan(ctx context.Context, planID int64) (*domain.Plan, error)
	GetSubscriptionByID(ctx context.Context, subscriptionID uuid.UUID) (*domain.Subscription, error)
	GetActiveSubscriptionByBusiness(ctx context.Context, businessID uuid.UUID) (*domain.Subscription, error)
	GetLatestSubscriptionByBusiness(ctx context.Context, businessID uuid.UUID) (*domain.Subscription, error)
	CreateSubscription(ctx context.Context, businessID uuid.UUID, planID int64, affiliateCode *string, activateNow bool, periodEnd *time.Time) (*domain.Subscription, error)
	AttachPaymentProof(ctx context.Context, subscriptionID, ownerID uuid.UUID, proofPath string) error
	ListPendingVerification(ctx context.Context, limit int) ([]domain.Subscription, error)
	RejectPayment(ctx context.Context, subscriptionID uuid.UUID) error
}

// BusinessOwnershipStore resolves listing ownership for subscription actions.
type BusinessOwnershipStore interface {
	GetBusinessByID(ctx context.Context, businessID uuid.UUID) (*domain.Business, error)
}

// SubscriptionService provides plan selection and payment proof flows.
type SubscriptionService struct {
	repo       SubscriptionStore
	businesses BusinessOwnershipStore
	outbox     EventEnqueuer
	maxProof   int64
}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService(repo SubscriptionStore, businesses BusinessOwnershipStore, outbox EventEnqueuer, maxProofBytes int64) *SubscriptionService {
	if maxProofBytes <= 0 {
		maxProofBytes = 5 << 20
	}
	return &SubscriptionService{repo: repo, businesses: businesses, outbox: outbox, maxProof: maxProofBytes}
}

// ListPlans returns the active plans.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return s.repo.ListPlans(ctx)
}

// CurrentSubscription returns the business's active subscription, falling back
// to its most recent one so owners can see a pending payment's state.
func (s *SubscriptionService) CurrentSubscription(ctx context.Context, businessID, ownerID uuid.UUID) (*domain.Subscription, error) {
	if err := s.checkOwnership(ctx, businessID, ownerID); err != nil {
		return nil, err
	}
	sub, err := s.repo.GetActiveSubscriptionByBusiness(ctx, businessID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, store.ErrSubscriptionNotFound) {
		return nil, err
	}
	return s.repo.GetLatestSubscriptionByBusiness(ctx, businessID)
}

// SelectPlan subscribes a business to a plan. A free plan activates on the
// spot; a paid plan is created pending and waits for a payment proof. The
// affiliate code is stored as entered and only resolved at verification time.
func (s *SubscriptionService) SelectPlan(ctx context.Context, ownerID uuid.UUID, req domain.SelectPlanRequest) (*domain.Subscription, error) {
	if err := s.checkOwnership(ctx, req.BusinessID, ownerID); err != nil {
		return nil, err
	}

	plan, err := s.repo.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}

	var affiliateCode *string
	if req.AffiliateCode != "" {
		affiliateCode = &req.AffiliateCode
	}

	if plan.IsFree() {
		periodEnd := time.Now().UTC().AddDate(0, 0, plan.DurationDays)
		return s.repo.CreateSubscription(ctx, req.BusinessID, plan.ID, affiliateCode, true, &periodEnd)
	}
	return s.repo.CreateSubscription(ctx, req.BusinessID, plan.ID, affiliateCode, false, nil)
}

// UploadPaymentProof validates and attaches an uploaded proof to a pending
// subscription, then notifies staff through the outbox.
func (s *SubscriptionService) UploadPaymentProof(ctx context.Context, subscriptionID, ownerID uuid.UUID, upload domain.PaymentProofUpload) error {
	if upload.SizeBytes > s.maxProof {
		return ErrProofTooLarge
	}
	if !allowedProofTypes[upload.ContentType] {
		return ErrProofBadType
	}

	if err := s.repo.AttachPaymentProof(ctx, subscriptionID, ownerID, upload.Path); err != nil {
		return err
	}

	event := domain.EmailEvent{
		To:        "", // resolved by the worker to the staff inbox
		Subject:   "New payment proof awaiting verification",
		Template:  "payment_proof_uploaded",
		Data:      map[string]string{"subscription_id": subscriptionID.String()},
		Timestamp: time.Now().UTC(),
	}
	if err := s.outbox.Enqueue(ctx, domain.EventsExchange, domain.EmailProofUploadedKey, event); err != nil {
		log.Printf("WARN: failed to enqueue payment proof notification for subscription %s: %v", subscriptionID, err)
	}
	return nil
}

// ListPendingVerification is the staff view of paid subscriptions awaiting review.
func (s *SubscriptionService) ListPendingVerification(ctx context.Context, limit int) ([]domain.Subscription, error) {
	return s.repo.ListPendingVerification(ctx, limit)
}

// RejectPayment is the staff action that rejects a pending payment.
func (s *SubscriptionService) RejectPayment(ctx context.Context, subscriptionID uuid.UUID) error {
	return s.repo.RejectPayment(ctx, subscriptionID)
}

func (s *SubscriptionService) checkOwnership(ctx context.Context, businessID, ownerID uuid.UUID) error {
	business, err := s.businesses.GetBusinessByID(ctx, businessID)
	if err != nil {
		return err
	}
	if business.OwnerID != ownerID {
		return ErrNotBusinessOwner
	}
	return nil
}

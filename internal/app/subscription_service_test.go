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

type subscriptionRepoStub struct {
	plans map[int64]*domain.Plan

	created      *domain.Subscription
	attachedPath string
}

func (s *subscriptionRepoStub) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range s.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (s *subscriptionRepoStub) GetPlan(ctx context.Context, planID int64) (*domain.Plan, error) {
	plan, ok := s.plans[planID]
	if !ok {
		return nil, store.ErrPlanNotFound
	}
	return plan, nil
}

func (s *subscriptionRepoStub) GetSubscriptionByID(ctx context.Context, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	return nil, store.ErrSubscriptionNotFound
}

func (s *subscriptionRepoStub) GetActiveSubscriptionByBusiness(ctx context.Context, businessID uuid.UUID) (*domain.Subscription, error) {
	return nil, store.ErrSubscriptionNotFound
}

func (s *subscriptionRepoStub) GetLatestSubscriptionByBusiness(ctx context.Context, businessID uuid.UUID) (*domain.Subscription, error) {
	if s.created == nil {
		return nil, store.ErrSubscriptionNotFound
	}
	return s.created, nil
}

func (s *subscriptionRepoStub) CreateSubscription(ctx context.Context, businessID uuid.UUID, planID int64, affiliateCode *string, activateNow bool, periodEnd *time.Time) (*domain.Subscription, error) {
	plan := s.plans[planID]
	status := domain.PaymentPending
	if activateNow {
		status = domain.PaymentVerified
	}
	s.created = &domain.Subscription{
		ID:            uuid.New(),
		BusinessID:    businessID,
		PlanID:        planID,
		PlanPrice:     plan.Price,
		PaymentStatus: status,
		IsActive:      activateNow,
		AffiliateCode: affiliateCode,
		PeriodEnd:     periodEnd,
	}
	return s.created, nil
}

func (s *subscriptionRepoStub) AttachPaymentProof(ctx context.Context, subscriptionID, ownerID uuid.UUID, proofPath string) error {
	s.attachedPath = proofPath
	return nil
}

func (s *subscriptionRepoStub) ListPendingVerification(ctx context.Context, limit int) ([]domain.Subscription, error) {
	return nil, nil
}

func (s *subscriptionRepoStub) RejectPayment(ctx context.Context, subscriptionID uuid.UUID) error {
	return nil
}

type ownershipStub struct {
	ownerID uuid.UUID
}

func (s *ownershipStub) GetBusinessByID(ctx context.Context, businessID uuid.UUID) (*domain.Business, error) {
	return &domain.Business{ID: businessID, OwnerID: s.ownerID}, nil
}

func testPlans() map[int64]*domain.Plan {
	return map[int64]*domain.Plan{
		1: {ID: 1, Name: "Free", Price: decimal.Zero, DurationDays: 30, IsActive: true},
		2: {ID: 2, Name: "Standard", Price: decimal.NewFromInt(2500), DurationDays: 180, IsActive: true},
		3: {ID: 3, Name: "Legacy", Price: decimal.NewFromInt(1500), DurationDays: 90, IsActive: false},
	}
}

func TestSelectFreePlanActivatesImmediately(t *testing.T) {
	ownerID := uuid.New()
	repo := &subscriptionRepoStub{plans: testPlans()}
	svc := NewSubscriptionService(repo, &ownershipStub{ownerID: ownerID}, &enqueuerStub{}, 0)

	sub, err := svc.SelectPlan(context.Background(), ownerID, domain.SelectPlanRequest{
		BusinessID: uuid.New(),
		PlanID:     1,
	})
	if err != nil {
		t.Fatalf("expected free plan selection to succeed, got %v", err)
	}
	if !sub.IsActive || sub.PaymentStatus != domain.PaymentVerified {
		t.Fatalf("expected an active verified subscription, got %+v", sub)
	}
	if sub.PeriodEnd == nil {
		t.Fatal("expected a period end for the free plan")
	}
}

func TestSelectPaidPlanStaysPending(t *testing.T) {
	ownerID := uuid.New()
	repo := &subscriptionRepoStub{plans: testPlans()}
	svc := NewSubscriptionService(repo, &ownershipStub{ownerID: ownerID}, &enqueuerStub{}, 0)

	sub, err := svc.SelectPlan(context.Background(), ownerID, domain.SelectPlanRequest{
		BusinessID:    uuid.New(),
		PlanID:        2,
		AffiliateCode: "AFFCODE1",
	})
	if err != nil {
		t.Fatalf("expected paid plan selection to succeed, got %v", err)
	}
	if sub.IsActive || sub.PaymentStatus != domain.PaymentPending {
		t.Fatalf("expected a pending inactive subscription, got %+v", sub)
	}
	if sub.AffiliateCode == nil || *sub.AffiliateCode != "AFFCODE1" {
		t.Fatal("expected the affiliate code to be stored as entered")
	}
	if sub.PeriodEnd != nil {
		t.Fatal("expected no period end before verification")
	}
}

func TestSelectInactivePlanIsRejected(t *testing.T) {
	ownerID := uuid.New()
	repo := &subscriptionRepoStub{plans: testPlans()}
	svc := NewSubscriptionService(repo, &ownershipStub{ownerID: ownerID}, &enqueuerStub{}, 0)

	_, err := svc.SelectPlan(context.Background(), ownerID, domain.SelectPlanRequest{
		BusinessID: uuid.New(),
		PlanID:     3,
	})
	if !errors.Is(err, ErrPlanInactive) {
		t.Fatalf("expected ErrPlanInactive, got %v", err)
	}
}

func TestSelectPlanRequiresOwnership(t *testing.T) {
	repo := &subscriptionRepoStub{plans: testPlans()}
	svc := NewSubscriptionService(repo, &ownershipStub{ownerID: uuid.New()}, &enqueuerStub{}, 0)

	_, err := svc.SelectPlan(context.Background(), uuid.New(), domain.SelectPlanRequest{
		BusinessID: uuid.New(),
		PlanID:     2,
	})
	if !errors.Is(err, ErrNotBusinessOwner) {
		t.Fatalf("expected ErrNotBusinessOwner, got %v", err)
	}
}

func TestUploadPaymentProofValidation(t *testing.T) {
	repo := &subscriptionRepoStub{plans: testPlans()}
	outbox := &enqueuerStub{}
	svc := NewSubscriptionService(repo, &ownershipStub{}, outbox, 1<<20)

	err := svc.UploadPaymentProof(context.Background(), uuid.New(), uuid.New(), domain.PaymentProofUpload{
		Path:        "uploads/huge.png",
		ContentType: "image/png",
		SizeBytes:   2 << 20,
	})
	if !errors.Is(err, ErrProofTooLarge) {
		t.Fatalf("expected ErrProofTooLarge, got %v", err)
	}

	err = svc.UploadPaymentProof(context.Background(), uuid.New(), uuid.New(), domain.PaymentProofUpload{
		Path:        "uploads/malware.exe",
		ContentType: "application/octet-stream",
		SizeBytes:   1024,
	})
	if !errors.Is(err, ErrProofBadType) {
		t.Fatalf("expected ErrProofBadType, got %v", err)
	}

	err = svc.UploadPaymentProof(context.Background(), uuid.New(), uuid.New(), domain.PaymentProofUpload{
		Path:        "uploads/receipt.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1024,
	})
	if err != nil {
		t.Fatalf("expected upload to succeed, got %v", err)
	}
	if repo.attachedPath != "uploads/receipt.pdf" {
		t.Fatalf("expected the proof path to be attached, got %q", repo.attachedPath)
	}
	if len(outbox.keys) != 1 || outbox.keys[0] != domain.EmailProofUploadedKey {
		t.Fatalf("expected a staff notification event, got %v", outbox.keys)
	}
}

package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/vyaparlink/directory-server/internal/domain"
	"github.com/vyaparlink/directory-server/internal/store"
)

type businessRepoStub struct {
	business *domain.Business

	suggestionCalls int
	reviews         []domain.Review
	enquiries       []domain.Enquiry
	couponCode      string
}

func (s *businessRepoStub) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return nil, nil
}

func (s *businessRepoStub) CreateBusiness(ctx context.Context, ownerID uuid.UUID, req domain.CreateBusinessRequest) (*domain.Business, error) {
	s.business = &domain.Business{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    req.Name,
		Email:   req.Email,
	}
	return s.business, nil
}

func (s *businessRepoStub) UpdateBusiness(ctx context.Context, businessID, ownerID uuid.UUID, req domain.CreateBusinessRequest) (*domain.Business, error) {
	return s.business, nil
}

func (s *businessRepoStub) GetBusinessByID(ctx context.Context, businessID uuid.UUID) (*domain.Business, error) {
	if s.business == nil {
		return nil, store.ErrBusinessNotFound
	}
	return s.business, nil
}

func (s *businessRepoStub) ListBusinessesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Business, error) {
	return nil, nil
}

func (s *businessRepoStub) SearchBusinesses(ctx context.Context, filter domain.BusinessSearchFilter) ([]domain.Business, error) {
	return nil, nil
}

func (s *businessRepoStub) SearchSuggestions(ctx context.Context, term string, limit int) ([]string, error) {
	s.suggestionCalls++
	return []string{"Sharma Traders"}, nil
}

func (s *businessRepoStub) SetBusinessActive(ctx context.Context, businessID uuid.UUID, active bool) error {
	s.business.IsActive = active
	return nil
}

func (s *businessRepoStub) CreateReview(ctx context.Context, businessID uuid.UUID, userID *uuid.UUID, req domain.CreateReviewRequest) (*domain.Review, error) {
	review := domain.Review{
		ID:         uuid.New(),
		BusinessID: businessID,
		Name:       req.Name,
		Email:      req.Email,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	s.reviews = append(s.reviews, review)
	return &review, nil
}

func (s *businessRepoStub) ListReviews(ctx context.Context, businessID uuid.UUID, approvedOnly bool) ([]domain.Review, error) {
	return s.reviews, nil
}

func (s *businessRepoStub) ApproveReview(ctx context.Context, reviewID uuid.UUID) (*domain.Review, error) {
	return &domain.Review{ID: reviewID, IsApproved: true, Email: "reviewer@example.com"}, nil
}

func (s *businessRepoStub) CreateEnquiry(ctx context.Context, businessID uuid.UUID, req domain.CreateEnquiryRequest) (*domain.Enquiry, error) {
	enquiry := domain.Enquiry{
		ID:         uuid.New(),
		BusinessID: businessID,
		Name:       req.Name,
		Email:      req.Email,
		Message:    req.Message,
	}
	s.enquiries = append(s.enquiries, enquiry)
	return &enquiry, nil
}

func (s *businessRepoStub) ListEnquiries(ctx context.Context, businessID uuid.UUID) ([]domain.Enquiry, error) {
	return s.enquiries, nil
}

func (s *businessRepoStub) MarkEnquiryResponded(ctx context.Context, enquiryID, ownerID uuid.UUID) error {
	return nil
}

func (s *businessRepoStub) CreateCouponRequest(ctx context.Context, businessID uuid.UUID, email string) (*domain.CouponRequest, error) {
	return &domain.CouponRequest{ID: uuid.New(), BusinessID: businessID, Email: email}, nil
}

func (s *businessRepoStub) FulfilCouponRequest(ctx context.Context, requestID uuid.UUID, couponCode string) (*domain.CouponRequest, error) {
	s.couponCode = couponCode
	return &domain.CouponRequest{ID: requestID, Email: "visitor@example.com", CouponCode: &couponCode, IsSent: true}, nil
}

func TestSuggestionsRequireTwoCharacters(t *testing.T) {
	repo := &businessRepoStub{}
	svc := NewDirectoryService(repo, &enqueuerStub{})

	got, err := svc.Suggestions(context.Background(), "s")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 0 || repo.suggestionCalls != 0 {
		t.Fatal("expected no lookup for a one-character term")
	}

	if _, err := svc.Suggestions(context.Background(), "sh"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.suggestionCalls != 1 {
		t.Fatal("expected one lookup for a two-character term")
	}
}

func TestSubmitReviewValidatesRating(t *testing.T) {
	repo := &businessRepoStub{business: &domain.Business{ID: uuid.New()}}
	svc := NewDirectoryService(repo, &enqueuerStub{})

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.SubmitReview(context.Background(), repo.business.ID, nil, domain.CreateReviewRequest{
			Name:   "Ravi",
			Email:  "ravi@example.com",
			Rating: rating,
		})
		if !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("expected ErrInvalidRating for rating %d, got %v", rating, err)
		}
	}

	review, err := svc.SubmitReview(context.Background(), repo.business.ID, nil, domain.CreateReviewRequest{
		Name:   "Ravi",
		Email:  "ravi@example.com",
		Rating: 4,
	})
	if err != nil {
		t.Fatalf("expected review to be accepted, got %v", err)
	}
	if review.Rating != 4 {
		t.Fatalf("expected rating 4, got %d", review.Rating)
	}
}

func TestSubmitEnquiryNotifiesBothParties(t *testing.T) {
	repo := &businessRepoStub{business: &domain.Business{
		ID:    uuid.New(),
		Name:  "Sharma Traders",
		Email: "owner@example.com",
	}}
	outbox := &enqueuerStub{}
	svc := NewDirectoryService(repo, outbox)

	_, err := svc.SubmitEnquiry(context.Background(), repo.business.ID, domain.CreateEnquiryRequest{
		Name:    "Priya",
		Email:   "priya@example.com",
		Message: "Do you deliver?",
	})
	if err != nil {
		t.Fatalf("expected enquiry to be accepted, got %v", err)
	}
	if len(outbox.keys) != 2 {
		t.Fatalf("expected two email events, got %v", outbox.keys)
	}
	if outbox.keys[0] != domain.EmailEnquiryAckKey || outbox.keys[1] != domain.EmailEnquiryOwnerKey {
		t.Fatalf("expected ack then owner notification, got %v", outbox.keys)
	}
}

func TestListEnquiriesRequiresOwnership(t *testing.T) {
	ownerID := uuid.New()
	repo := &businessRepoStub{business: &domain.Business{ID: uuid.New(), OwnerID: ownerID}}
	svc := NewDirectoryService(repo, &enqueuerStub{})

	_, err := svc.ListEnquiries(context.Background(), repo.business.ID, uuid.New())
	if !errors.Is(err, ErrNotListingOwner) {
		t.Fatalf("expected ErrNotListingOwner, got %v", err)
	}

	if _, err := svc.ListEnquiries(context.Background(), repo.business.ID, ownerID); err != nil {
		t.Fatalf("expected the owner to list enquiries, got %v", err)
	}
}

func TestSendCouponGeneratesCodeWhenBlank(t *testing.T) {
	repo := &businessRepoStub{}
	outbox := &enqueuerStub{}
	svc := NewDirectoryService(repo, outbox)

	request, err := svc.SendCoupon(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("expected coupon to be sent, got %v", err)
	}
	if !strings.HasPrefix(repo.couponCode, "SAVE-") {
		t.Fatalf("expected a generated SAVE- code, got %q", repo.couponCode)
	}
	if !request.IsSent {
		t.Fatal("expected the request to be marked sent")
	}
	if len(outbox.keys) != 1 || outbox.keys[0] != domain.EmailCouponKey {
		t.Fatalf("expected a coupon email event, got %v", outbox.keys)
	}
}

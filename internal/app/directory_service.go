/**
 * @description
 * Directory flows: listings, reviews, enquiries and coupon requests, with the
 * acknowledgement and owner-notification emails each of them triggers.
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

	"github.com/vyaparlink/directory-server/internal/domain"
)

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrNotListingOwner = errors.New("listing does not belong to this user")
)

// BusinessStore is the subset of the business repository this service needs.
type BusinessStore interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateBusiness(ctx context.Context, ownerID uuid.UUID, req domain.CreateBusinessRequest) (*domain.Business, error)
	UpdateBusiness(ctx context.Context, businessID, ownerID uuid.UUID, req domain.CreateBusinessRequest) (*domain.Business, error)
	GetBusinessByID(ctx context.Context, businessID uuid.UUID) (*domain.Business, error)
	ListBusinessesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Business, error)
	SearchBusinesses(ctx context.Context, filter domain.BusinessSearchFilter) ([]domain.Business, error)
	SearchSuggestions(ctx context.Context, term string, limit int) ([]string, error)
	SetBusinessActive(ctx context.Context, businessID uuid.UUID, active bool) error
	CreateReview(ctx context.Context, businessID uuid.UUID, userID *uuid.UUID, req domain.CreateReviewRequest) (*domain.Review, error)
	ListReviews(ctx context.Context, businessID uuid.UUID, approvedOnly bool) ([]domain.Review, error)
	ApproveReview(ctx context.Context, reviewID uuid.UUID) (*domain.Review, error)
	CreateEnquiry(ctx context.Context, businessID uuid.UUID, req domain.CreateEnquiryRequest) (*domain.Enquiry, error)
	ListEnquiries(ctx context.Context, businessID uuid.UUID) ([]domain.Enquiry, error)
	MarkEnquiryResponded(ctx context.Context, enquiryID, ownerID uuid.UUID) error
	CreateCouponRequest(ctx context.Context, businessID uuid.UUID, email string) (*domain.CouponRequest, error)
	FulfilCouponRequest(ctx context.Context, requestID uuid.UUID, couponCode string) (*domain.CouponRequest, error)
}

// DirectoryService provides listing, review, enquiry and coupon flows.
type DirectoryService struct {
	repo   BusinessStore
	outbox EventEnqueuer
}

// NewDirectoryService creates a new directory service.
func NewDirectoryService(repo BusinessStore, outbox EventEnqueuer) *DirectoryService {
	return &DirectoryService{repo: repo, outbox: outbox}
}

// ListCategories returns all categories.
func (s *DirectoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

// Search returns active listings matching the filter.
func (s *DirectoryService) Search(ctx context.Context, filter domain.BusinessSearchFilter) ([]domain.Business, error) {
	return s.repo.SearchBusinesses(ctx, filter)
}

// Suggestions returns business-name completions for a search term.
func (s *DirectoryService) Suggestions(ctx context.Context, term string) ([]string, error) {
	if len(term) < 2 {
		return []string{}, nil
	}
	return s.repo.SearchSuggestions(ctx, term, 10)
}

// GetBusiness returns one listing.
func (s *DirectoryService) GetBusiness(ctx context.Context, businessID uuid.UUID) (*domain.Business, error) {
	return s.repo.GetBusinessByID(ctx, businessID)
}

// ListOwnListings returns the caller's listings.
func (s *DirectoryService) ListOwnListings(ctx context.Context, ownerID uuid.UUID) ([]domain.Business, error) {
	return s.repo.ListBusinessesByOwner(ctx, ownerID)
}

// CreateListing creates a business for the owner and notifies them it is live.
func (s *DirectoryService) CreateListing(ctx context.Context, ownerID uuid.UUID, req domain.CreateBusinessRequest) (*domain.Business, error) {
	business, err := s.repo.CreateBusiness(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, domain.EmailBusinessLiveKey, domain.EmailEvent{
		To:        business.Email,
		Subject:   "Your business listing is live",
		Template:  "business_live",
		Data:      map[string]string{"business": business.Name},
		Timestamp: time.Now().UTC(),
	})
	return business, nil
}

// UpdateListing updates a business owned by the caller.
func (s *DirectoryService) UpdateListing(ctx context.Context, businessID, ownerID uuid.UUID, req domain.CreateBusinessRequest) (*domain.Business, error) {
	return s.repo.UpdateBusiness(ctx, businessID, ownerID, req)
}

// SetActive is the staff action that toggles a listing's visibility.
func (s *DirectoryService) SetActive(ctx context.Context, businessID uuid.UUID, active bool) error {
	return s.repo.SetBusinessActive(ctx, businessID, active)
}

// SubmitReview records a review pending staff approval and acknowledges it.
func (s *DirectoryService) SubmitReview(ctx context.Context, businessID uuid.UUID, userID *uuid.UUID, req domain.CreateReviewRequest) (*domain.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if _, err := s.repo.GetBusinessByID(ctx, businessID); err != nil {
		return nil, err
	}

	review, err := s.repo.CreateReview(ctx, businessID, userID, req)
	if err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, domain.EmailReviewAckKey, domain.EmailEvent{
		To:        review.Email,
		Subject:   "Thanks for your review",
		Template:  "review_ack",
		Data:      map[string]string{"name": review.Name},
		Timestamp: time.Now().UTC(),
	})
	return review, nil
}

// ListReviews returns a business's approved reviews.
func (s *DirectoryService) ListReviews(ctx context.Context, businessID uuid.UUID) ([]domain.Review, error) {
	return s.repo.ListReviews(ctx, businessID, true)
}

// ApproveReview is the staff action that makes a review visible, notifying
// its author.
func (s *DirectoryService) ApproveReview(ctx context.Context, reviewID uuid.UUID) (*domain.Review, error) {
	review, err := s.repo.ApproveReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, domain.EmailReviewVisibleKey, domain.EmailEvent{
		To:        review.Email,
		Subject:   "Your review is now visible",
		Template:  "review_visible",
		Data:      map[string]string{"name": review.Name},
		Timestamp: time.Now().UTC(),
	})
	return review, nil
}

// SubmitEnquiry records an enquiry and emails both parties.
func (s *DirectoryService) SubmitEnquiry(ctx context.Context, businessID uuid.UUID, req domain.CreateEnquiryRequest) (*domain.Enquiry, error) {
	business, err := s.repo.GetBusinessByID(ctx, businessID)
	if err != nil {
		return nil, err
	}

	enquiry, err := s.repo.CreateEnquiry(ctx, businessID, req)
	if err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, domain.EmailEnquiryAckKey, domain.EmailEvent{
		To:        enquiry.Email,
		Subject:   fmt.Sprintf("We received your enquiry for %s", business.Name),
		Template:  "enquiry_ack",
		Data:      map[string]string{"name": enquiry.Name, "business": business.Name},
		Timestamp: time.Now().UTC(),
	})
	s.enqueueEmail(ctx, domain.EmailEnquiryOwnerKey, domain.EmailEvent{
		To:        business.Email,
		Subject:   "New enquiry for your business",
		Template:  "enquiry_owner",
		Data:      map[string]string{"business": business.Name, "from": enquiry.Name},
		Timestamp: time.Now().UTC(),
	})
	return enquiry, nil
}

// ListEnquiries returns enquiries for a listing owned by the caller.
func (s *DirectoryService) ListEnquiries(ctx context.Context, businessID, ownerID uuid.UUID) ([]domain.Enquiry, error) {
	business, err := s.repo.GetBusinessByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business.OwnerID != ownerID {
		return nil, ErrNotListingOwner
	}
	return s.repo.ListEnquiries(ctx, businessID)
}

// MarkEnquiryResponded flags an enquiry as handled.
func (s *DirectoryService) MarkEnquiryResponded(ctx context.Context, enquiryID, ownerID uuid.UUID) error {
	return s.repo.MarkEnquiryResponded(ctx, enquiryID, ownerID)
}

// RequestCoupon records a coupon request for a visitor.
func (s *DirectoryService) RequestCoupon(ctx context.Context, businessID uuid.UUID, email string) (*domain.CouponRequest, error) {
	if _, err := s.repo.GetBusinessByID(ctx, businessID); err != nil {
		return nil, err
	}
	return s.repo.CreateCouponRequest(ctx, businessID, email)
}

// SendCoupon is the owner action that assigns a code to a coupon request and
// emails it out.
func (s *DirectoryService) SendCoupon(ctx context.Context, requestID uuid.UUID, couponCode string) (*domain.CouponRequest, error) {
	if couponCode == "" {
		code, err := generateCouponCode()
		if err != nil {
			return nil, err
		}
		couponCode = code
	}

	request, err := s.repo.FulfilCouponRequest(ctx, requestID, couponCode)
	if err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, domain.EmailCouponKey, domain.EmailEvent{
		To:        request.Email,
		Subject:   "Your discount coupon",
		Template:  "coupon",
		Data:      map[string]string{"code": couponCode},
		Timestamp: time.Now().UTC(),
	})
	return request, nil
}

func (s *DirectoryService) enqueueEmail(ctx context.Context, routingKey string, event domain.EmailEvent) {
	if err := s.outbox.Enqueue(ctx, domain.EventsExchange, routingKey, event); err != nil {
		log.Printf("WARN: failed to enqueue %s email to %s: %v", routingKey, event.To, err)
	}
}

func generateCouponCode() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = affiliateCodeAlphabet[int(b)%len(affiliateCodeAlphabet)]
	}
	return "SAVE-" + string(buf), nil
}

/**
 * @description
 * Directory listing models: categories, businesses, reviews, enquiries and
 * coupon requests. These structs map directly to their database tables.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus tracks the verification state of a business's documents.
type KYCStatus string

const (
	KYCNotSubmitted KYCStatus = "not_submitted"
	KYCPending      KYCStatus = "pending"
	KYCCompleted    KYCStatus = "completed"
)

// Category groups businesses in the directory.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// Business represents a listed business owned by a user.
type Business struct {
	ID                 uuid.UUID `json:"id"`
	OwnerID            uuid.UUID `json:"owner_id"`
	Name               string    `json:"name"`
	CategoryID         int64     `json:"category_id"`
	CategoryName       string    `json:"category_name,omitempty"`
	Description        string    `json:"description"`
	Address            string    `json:"address"`
	Pincode            string    `json:"pincode"`
	City               string    `json:"city"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email"`
	Website            string    `json:"website,omitempty"`
	RegistrationNumber string    `json:"registration_number"`
	GSTNumber          string    `json:"gst_number,omitempty"`
	GSTVerified        bool      `json:"gst_verified"`
	KYCStatus          KYCStatus `json:"kyc_status"`
	IsActive           bool      `json:"is_active"`
	AvgRating          *float64  `json:"avg_rating,omitempty"`
	ReviewCount        int       `json:"review_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// BusinessSearchFilter narrows directory searches.
type BusinessSearchFilter struct {
	Query      string
	CategoryID int64
	Pincode    string
	Limit      int
	Offset     int
}

// CreateBusinessRequest is the DTO for creating or updating a listing.
type CreateBusinessRequest struct {
	Name               string `json:"name"`
	CategoryID         int64  `json:"category_id"`
	Description        string `json:"description"`
	Address            string `json:"address"`
	Pincode            string `json:"pincode"`
	City               string `json:"city"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Website            string `json:"website"`
	RegistrationNumber string `json:"registration_number"`
	GSTNumber          string `json:"gst_number"`
}

// Review is customer feedback on a business. Hidden until staff approval.
type Review struct {
	ID         uuid.UUID  `json:"id"`
	BusinessID uuid.UUID  `json:"business_id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Rating     int        `json:"rating"`
	Comment    string     `json:"comment"`
	IsApproved bool       `json:"is_approved"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateReviewRequest is the DTO for posting a review.
type CreateReviewRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Enquiry is a customer message to a business owner.
type Enquiry struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Message     string    `json:"message"`
	IsResponded bool      `json:"is_responded"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateEnquiryRequest is the DTO for submitting an enquiry.
type CreateEnquiryRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// CouponRequest tracks a visitor asking a business for a discount coupon.
type CouponRequest struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Email      string    `json:"email"`
	CouponCode *string   `json:"coupon_code,omitempty"`
	IsSent     bool      `json:"is_sent"`
	CreatedAt  time.Time `json:"created_at"`
}

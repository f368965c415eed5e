/**
 * @description
 * PostgreSQL repository for the directory: categories, business listings,
 * reviews, enquiries and coupon requests.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vyaparlink/directory-server/internal/domain"
)

var (
	ErrBusinessNotFound      = errors.New("business not found")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrReviewNotFound        = errors.New("review not found")
	ErrEnquiryNotFound       = errors.New("enquiry not found")
	ErrCouponRequestNotFound = errors.New("coupon request not found")
)

// BusinessRepository handles database operations for directory listings.
type BusinessRepository struct {
	db *pgxpool.Pool
}

// NewBusinessRepository creates a new business repository.
func NewBusinessRepository(db *pgxpool.Pool) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// ListCategories returns all directory categories.
func (r *BusinessRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, slug, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const businessSelect = `
	SELECT b.id, b.owner_id, b.name, b.category_id, c.name, b.description,
		b.address, b.pincode, b.city, b.phone, b.email, b.website,
		b.registration_number, b.gst_number, b.gst_verified, b.kyc_status,
		b.is_active,
		AVG(rv.rating) FILTER (WHERE rv.is_approved),
		COUNT(rv.id) FILTER (WHERE rv.is_approved),
		b.created_at, b.updated_at
	FROM businesses b
	JOIN categories c ON c.id = b.category_id
	LEFT JOIN reviews rv ON rv.business_id = b.id
`

const businessGroupBy = ` GROUP BY b.id, c.name`

func scanBusiness(row pgx.Row) (*domain.Business, error) {
	var b domain.Business
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Name, &b.CategoryID, &b.CategoryName, &b.Description,
		&b.Address, &b.Pincode, &b.City, &b.Phone, &b.Email, &b.Website,
		&b.RegistrationNumber, &b.GSTNumber, &b.GSTVerified, &b.KYCStatus,
		&b.IsActive, &b.AvgRating, &b.ReviewCount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return &b, nil
}

// CreateBusiness inserts a new listing for the owner.
func (r *BusinessRepository) CreateBusiness(ctx context.Context, ownerID uuid.UUID, req domain.CreateBusinessRequest) (*domain.Business, error) {
	var id uuid.UUID
	query := `
		INSERT INTO businesses (owner_id, name, category_id, description, address, pincode, city,
			phone, email, website, registration_number, gst_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		ownerID, req.Name, req.CategoryID, req.Description, req.Address, req.Pincode, req.City,
		req.Phone, req.Email, req.Website, req.RegistrationNumber, req.GSTNumber,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetBusinessByID(ctx, id)
}

// UpdateBusiness updates a listing owned by ownerID.
func (r *BusinessRepository) UpdateBusiness(ctx context.Context, businessID, ownerID uuid.UUID, req domain.CreateBusinessRequest) (*domain.Business, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE businesses
		SET name = $3, category_id = $4, description = $5, address = $6, pincode = $7,
			city = $8, phone = $9, email = $10, website = $11,
			registration_number = $12, gst_number = $13, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
	`, businessID, ownerID,
		req.Name, req.CategoryID, req.Description, req.Address, req.Pincode,
		req.City, req.Phone, req.Email, req.Website,
		req.RegistrationNumber, req.GSTNumber)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, ErrBusinessNotFound
	}
	return r.GetBusinessByID(ctx, businessID)
}

// GetBusinessByID retrieves one listing with its approved-rating aggregate.
func (r *BusinessRepository) GetBusinessByID(ctx context.Context, businessID uuid.UUID) (*domain.Business, error) {
	query := businessSelect + ` WHERE b.id = $1` + businessGroupBy
	return scanBusiness(r.db.QueryRow(ctx, query, businessID))
}

// ListBusinessesByOwner returns all listings owned by a user.
func (r *BusinessRepository) ListBusinessesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Business, error) {
	query := businessSelect + ` WHERE b.owner_id = $1` + businessGroupBy + ` ORDER BY b.created_at DESC`
	return r.queryBusinesses(ctx, query, ownerID)
}

// SearchBusinesses returns active listings matching the filter.
func (r *BusinessRepository) SearchBusinesses(ctx context.Context, filter domain.BusinessSearchFilter) ([]domain.Business, error) {
	query := businessSelect + ` WHERE b.is_active`
	args := []interface{}{}
	n := 0

	if filter.Query != "" {
		n++
		query += fmt.Sprintf(" AND (b.name ILIKE '%%' || $%d || '%%' OR b.description ILIKE '%%' || $%d || '%%')", n, n)
		args = append(args, filter.Query)
	}
	if filter.CategoryID > 0 {
		n++
		query += fmt.Sprintf(" AND b.category_id = $%d", n)
		args = append(args, filter.CategoryID)
	}
	if filter.Pincode != "" {
		n++
		query += fmt.Sprintf(" AND b.pincode = $%d", n)
		args = append(args, filter.Pincode)
	}

	query += businessGroupBy + ` ORDER BY b.created_at DESC`

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)
	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	return r.queryBusinesses(ctx, query, args...)
}

func (r *BusinessRepository) queryBusinesses(ctx context.Context, query string, args ...interface{}) ([]domain.Business, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var businesses []domain.Business
	for rows.Next() {
		var b domain.Business
		if err := rows.Scan(
			&b.ID, &b.OwnerID, &b.Name, &b.CategoryID, &b.CategoryName, &b.Description,
			&b.Address, &b.Pincode, &b.City, &b.Phone, &b.Email, &b.Website,
			&b.RegistrationNumber, &b.GSTNumber, &b.GSTVerified, &b.KYCStatus,
			&b.IsActive, &b.AvgRating, &b.ReviewCount, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}

// SearchSuggestions returns business names matching a prefix query.
func (r *BusinessRepository) SearchSuggestions(ctx context.Context, term string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT name FROM businesses
		WHERE is_active AND (name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		ORDER BY name
		LIMIT $2
	`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SetBusinessActive toggles a listing's visibility.
func (r *BusinessRepository) SetBusinessActive(ctx context.Context, businessID uuid.UUID, active bool) error {
	result, err := r.db.Exec(ctx, `UPDATE businesses SET is_active = $2, updated_at = NOW() WHERE id = $1`, businessID, active)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

// CreateReview inserts a review, unapproved by default.
func (r *BusinessRepository) CreateReview(ctx context.Context, businessID uuid.UUID, userID *uuid.UUID, req domain.CreateReviewRequest) (*domain.Review, error) {
	var review domain.Review
	query := `
		INSERT INTO reviews (business_id, user_id, name, email, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, business_id, user_id, name, email, rating, comment, is_approved, created_at
	`
	err := r.db.QueryRow(ctx, query, businessID, userID, req.Name, req.Email, req.Rating, req.Comment).Scan(
		&review.ID, &review.BusinessID, &review.UserID, &review.Name, &review.Email,
		&review.Rating, &review.Comment, &review.IsApproved, &review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListReviews returns reviews for a business, optionally only approved ones.
func (r *BusinessRepository) ListReviews(ctx context.Context, businessID uuid.UUID, approvedOnly bool) ([]domain.Review, error) {
	query := `
		SELECT id, business_id, user_id, name, email, rating, comment, is_approved, created_at
		FROM reviews
		WHERE business_id = $1 AND ($2 = false OR is_approved)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, businessID, approvedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.BusinessID, &rv.UserID, &rv.Name, &rv.Email,
			&rv.Rating, &rv.Comment, &rv.IsApproved, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// ApproveReview makes a review publicly visible and returns it.
func (r *BusinessRepository) ApproveReview(ctx context.Context, reviewID uuid.UUID) (*domain.Review, error) {
	var review domain.Review
	query := `
		UPDATE reviews SET is_approved = true
		WHERE id = $1
		RETURNING id, business_id, user_id, name, email, rating, comment, is_approved, created_at
	`
	err := r.db.QueryRow(ctx, query, reviewID).Scan(
		&review.ID, &review.BusinessID, &review.UserID, &review.Name, &review.Email,
		&review.Rating, &review.Comment, &review.IsApproved, &review.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &review, nil
}

// CreateEnquiry inserts a customer enquiry for a business.
func (r *BusinessRepository) CreateEnquiry(ctx context.Context, businessID uuid.UUID, req domain.CreateEnquiryRequest) (*domain.Enquiry, error) {
	var enquiry domain.Enquiry
	query := `
		INSERT INTO enquiries (business_id, name, email, phone, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, business_id, name, email, phone, message, is_responded, created_at
	`
	err := r.db.QueryRow(ctx, query, businessID, req.Name, req.Email, req.Phone, req.Message).Scan(
		&enquiry.ID, &enquiry.BusinessID, &enquiry.Name, &enquiry.Email,
		&enquiry.Phone, &enquiry.Message, &enquiry.IsResponded, &enquiry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &enquiry, nil
}

// ListEnquiries returns enquiries for a business, newest first.
func (r *BusinessRepository) ListEnquiries(ctx context.Context, businessID uuid.UUID) ([]domain.Enquiry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, business_id, name, email, phone, message, is_responded, created_at
		FROM enquiries WHERE business_id = $1 ORDER BY created_at DESC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enquiries []domain.Enquiry
	for rows.Next() {
		var e domain.Enquiry
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.Name, &e.Email, &e.Phone,
			&e.Message, &e.IsResponded, &e.CreatedAt); err != nil {
			return nil, err
		}
		enquiries = append(enquiries, e)
	}
	return enquiries, rows.Err()
}

// MarkEnquiryResponded flags an enquiry as handled by the owner.
func (r *BusinessRepository) MarkEnquiryResponded(ctx context.Context, enquiryID, ownerID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `
		UPDATE enquiries e
		SET is_responded = true
		FROM businesses b
		WHERE e.id = $1 AND b.id = e.business_id AND b.owner_id = $2
	`, enquiryID, ownerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEnquiryNotFound
	}
	return nil
}

// CreateCouponRequest records a visitor asking for a discount coupon.
func (r *BusinessRepository) CreateCouponRequest(ctx context.Context, businessID uuid.UUID, email string) (*domain.CouponRequest, error) {
	var req domain.CouponRequest
	query := `
		INSERT INTO coupon_requests (business_id, email)
		VALUES ($1, lower(btrim($2)))
		RETURNING id, business_id, email, coupon_code, is_sent, created_at
	`
	err := r.db.QueryRow(ctx, query, businessID, email).Scan(
		&req.ID, &req.BusinessID, &req.Email, &req.CouponCode, &req.IsSent, &req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FulfilCouponRequest assigns a coupon code and marks the request sent.
func (r *BusinessRepository) FulfilCouponRequest(ctx context.Context, requestID uuid.UUID, couponCode string) (*domain.CouponRequest, error) {
	var req domain.CouponRequest
	query := `
		UPDATE coupon_requests
		SET coupon_code = $2, is_sent = true
		WHERE id = $1
		RETURNING id, business_id, email, coupon_code, is_sent, created_at
	`
	err := r.db.QueryRow(ctx, query, requestID, couponCode).Scan(
		&req.ID, &req.BusinessID, &req.Email, &req.CouponCode, &req.IsSent, &req.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCouponRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

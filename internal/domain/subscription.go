/**
 * @description
 * Subscription plan and user subscription models. A business holds at most one
 * active subscription; paid plans require a manually uploaded payment proof
 * verified by staff before activation.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks the verification state of a subscription payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// Plan is a subscription tier with a fixed price and duration.
type Plan struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
	Features     []string        `json:"features"`
	IsActive     bool            `json:"is_active"`
}

// IsFree reports whether selecting this plan activates without payment.
func (p Plan) IsFree() bool {
	return p.Price.IsZero()
}

// Subscription links a business to a plan. Maps to the `subscriptions` table.
type Subscription struct {
	ID            uuid.UUID       `json:"id"`
	BusinessID    uuid.UUID       `json:"business_id"`
	PlanID        int64           `json:"plan_id"`
	PlanPrice     decimal.Decimal `json:"plan_price"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	IsActive      bool            `json:"is_active"`
	AffiliateCode *string         `json:"affiliate_code,omitempty"`
	ProofPath     *string         `json:"proof_path,omitempty"`
	PeriodEnd     *time.Time      `json:"period_end,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SelectPlanRequest is the DTO for choosing a plan for a business.
type SelectPlanRequest struct {
	BusinessID    uuid.UUID `json:"business_id"`
	PlanID        int64     `json:"plan_id"`
	AffiliateCode string    `json:"affiliate_code"`
}

// PaymentProofUpload carries metadata for an uploaded payment proof.
type PaymentProofUpload struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

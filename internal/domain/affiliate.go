/**
 * @description
 * Affiliate program models: profiles, referrals and payouts. Money fields use
 * decimal arithmetic; running totals on the profile are a denormalized cache,
 * the referral and payment tables are the source of truth.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AffiliateStatus is the lifecycle state of an affiliate application.
type AffiliateStatus string

const (
	AffiliatePending   AffiliateStatus = "pending"
	AffiliateApproved  AffiliateStatus = "approved"
	AffiliateRejected  AffiliateStatus = "rejected"
	AffiliateSuspended AffiliateStatus = "suspended"
)

// ReferralStatus is the lifecycle state of a commission-earning referral.
type ReferralStatus string

const (
	ReferralPendingApproval ReferralStatus = "pending_approval"
	ReferralApproved        ReferralStatus = "approved"
	ReferralRejected        ReferralStatus = "rejected"
)

// PayoutStatus is the lifecycle state of an affiliate payment.
type PayoutStatus string

const (
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutOnHold     PayoutStatus = "on_hold"
)

// AffiliateProfile is one user's affiliate account. The affiliate code is
// assigned exactly once, on approval, and never changes afterwards.
type AffiliateProfile struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	Status            AffiliateStatus `json:"status"`
	PromotionStrategy string          `json:"promotion_strategy,omitempty"`
	AffiliateCode     *string         `json:"affiliate_code,omitempty"`

	// Bank details, all four required for payout eligibility.
	AccountHolderName string `json:"account_holder_name,omitempty"`
	BankName          string `json:"bank_name,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	IFSCCode          string `json:"ifsc_code,omitempty"`

	// KYC document storage paths.
	AadharCardPath *string `json:"aadhar_card_path,omitempty"`
	PANCardPath    *string `json:"pan_card_path,omitempty"`

	// Cached running totals, refreshed from the referral/payment tables.
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
	PendingEarnings decimal.Decimal `json:"pending_earnings"`
	PaidEarnings    decimal.Decimal `json:"paid_earnings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasBankDetails reports whether all four bank fields are populated.
func (p AffiliateProfile) HasBankDetails() bool {
	return p.AccountHolderName != "" && p.BankName != "" && p.AccountNumber != "" && p.IFSCCode != ""
}

// AffiliateReferral records one commission-earning event. At most one referral
// exists per (affiliate, subscription) pair; the commission amount is fixed at
// creation and never recomputed.
type AffiliateReferral struct {
	ID               uuid.UUID       `json:"id"`
	AffiliateID      uuid.UUID       `json:"affiliate_id"`
	SubscriptionID   uuid.UUID       `json:"subscription_id"`
	BusinessName     string          `json:"business_name,omitempty"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	Status           ReferralStatus  `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// AffiliatePayment is one payout made against an affiliate's available balance.
type AffiliatePayment struct {
	ID            uuid.UUID       `json:"id"`
	AffiliateID   uuid.UUID       `json:"affiliate_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PayoutStatus    `json:"status"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	PaymentDate   time.Time       `json:"payment_date"`
}

// ApplyAffiliateRequest is the DTO for an affiliate application.
type ApplyAffiliateRequest struct {
	PromotionStrategy string `json:"promotion_strategy"`
}

// BankDetailsRequest is the DTO for updating payout bank details.
type BankDetailsRequest struct {
	AccountHolderName string `json:"account_holder_name"`
	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	IFSCCode          string `json:"ifsc_code"`
}

// KYCDocumentsRequest carries storage paths of uploaded identity documents.
type KYCDocumentsRequest struct {
	AadharCardPath string `json:"aadhar_card_path"`
	PANCardPath    string `json:"pan_card_path"`
}

// AffiliateDashboard aggregates the stats shown on the affiliate dashboard.
type AffiliateDashboard struct {
	Profile          *AffiliateProfile `json:"profile"`
	TotalReferrals   int               `json:"total_referrals"`
	BusinessCount    int               `json:"business_count"`
	AvailableBalance decimal.Decimal   `json:"available_balance"`
	PayoutEligible   bool              `json:"payout_eligible"`
}

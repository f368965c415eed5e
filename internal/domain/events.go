/**
 * @description
 * Event payloads published to RabbitMQ through the transactional outbox.
 * Email events are consumed by the email worker; the rest are informational
 * and available for any downstream consumer bound to the topic exchange.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventsExchange is the topic exchange all directory events are published to.
const EventsExchange = "directory.events"

// Routing keys for email events consumed by the email worker.
const (
	EmailWelcomeKey         = "email.account.welcome"
	EmailEnquiryAckKey      = "email.enquiry.ack"
	EmailEnquiryOwnerKey    = "email.enquiry.owner"
	EmailReviewAckKey       = "email.review.ack"
	EmailReviewVisibleKey   = "email.review.visible"
	EmailCouponKey          = "email.coupon.send"
	EmailBusinessLiveKey    = "email.business.live"
	EmailProofUploadedKey   = "email.payment.proof"
	EmailPayoutRequestedKey = "email.payout.requested"
)

// Routing keys for ledger events.
const (
	CommissionRecordedKey = "affiliate.commission.recorded"
	PayoutRequestedKey    = "affiliate.payout.requested"
	PayoutCompletedKey    = "affiliate.payout.completed"
)

// EmailEvent is the generic payload for all email.* routing keys.
type EmailEvent struct {
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Template  string            `json:"template"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// CommissionRecordedEvent is published when a verified subscription produces a referral.
type CommissionRecordedEvent struct {
	AffiliateID      uuid.UUID       `json:"affiliate_id"`
	SubscriptionID   uuid.UUID       `json:"subscription_id"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	Timestamp        time.Time       `json:"timestamp"`
}

// PayoutEvent is published when a payout is requested or completed.
type PayoutEvent struct {
	AffiliateID uuid.UUID       `json:"affiliate_id"`
	PaymentID   uuid.UUID       `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      PayoutStatus    `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
}

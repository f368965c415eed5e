/**
 * @description
 * Staff-only HTTP handlers: payment verification and rejection, affiliate
 * application and referral moderation, payout settlement, review approval
 * and listing visibility.
 */
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vyaparlink/directory-server/internal/domain"
)

// handleListPendingPayments returns paid subscriptions awaiting verification.
func (h *Handler) handleListPendingPayments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	subs, err := h.subscriptions.ListPendingVerification(r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	respondWithJSON(w, http.StatusOK, subs)
}

// handleVerifyPayment marks a subscription payment verified, activating the
// subscription and recording any referral commission in the same transaction.
func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	subscriptionID, err := parseUUIDParam(r, "subscriptionID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	sub, err := h.ledger.VerifySubscriptionPayment(r.Context(), subscriptionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

// handleRejectPayment rejects a pending subscription payment.
func (h *Handler) handleRejectPayment(w http.ResponseWriter, r *http.Request) {
	subscriptionID, err := parseUUIDParam(r, "subscriptionID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	if err := h.subscriptions.RejectPayment(r.Context(), subscriptionID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// handleApproveAffiliate approves an application and assigns the code.
func (h *Handler) handleApproveAffiliate(w http.ResponseWriter, r *http.Request) {
	profileID, err := parseUUIDParam(r, "profileID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	profile, err := h.affiliates.ApproveAffiliate(r.Context(), profileID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// handleRejectAffiliate rejects an affiliate application.
func (h *Handler) handleRejectAffiliate(w http.ResponseWriter, r *http.Request) {
	profileID, err := parseUUIDParam(r, "profileID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if err := h.affiliates.RejectAffiliate(r.Context(), profileID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// handleSuspendAffiliate suspends an approved affiliate.
func (h *Handler) handleSuspendAffiliate(w http.ResponseWriter, r *http.Request) {
	profileID, err := parseUUIDParam(r, "profileID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if err := h.affiliates.SuspendAffiliate(r.Context(), profileID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "suspended"})
}

// handleApproveReferral makes a referral's commission payable.
func (h *Handler) handleApproveReferral(w http.ResponseWriter, r *http.Request) {
	referralID, err := parseUUIDParam(r, "referralID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid referral id")
		return
	}

	referral, err := h.affiliates.ApproveReferral(r.Context(), referralID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, referral)
}

// handleRejectReferral voids a pending referral.
func (h *Handler) handleRejectReferral(w http.ResponseWriter, r *http.Request) {
	referralID, err := parseUUIDParam(r, "referralID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid referral id")
		return
	}

	referral, err := h.affiliates.RejectReferral(r.Context(), referralID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, referral)
}

// handleCompletePayout settles a processing payout.
func (h *Handler) handleCompletePayout(w http.ResponseWriter, r *http.Request) {
	paymentID, err := parseUUIDParam(r, "paymentID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	payment, err := h.affiliates.CompletePayout(r.Context(), paymentID, req.TransactionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, payment)
}

// handleHoldPayout parks a processing payout.
func (h *Handler) handleHoldPayout(w http.ResponseWriter, r *http.Request) {
	paymentID, err := parseUUIDParam(r, "paymentID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := h.affiliates.HoldPayout(r.Context(), paymentID, req.Notes); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "on_hold"})
}

// handleApproveReview makes a review publicly visible.
func (h *Handler) handleApproveReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := parseUUIDParam(r, "reviewID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	review, err := h.directory.ApproveReview(r.Context(), reviewID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, review)
}

// handleSetBusinessActive toggles a listing's visibility.
func (h *Handler) handleSetBusinessActive(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.directory.SetActive(r.Context(), businessID, req.IsActive); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"is_active": req.IsActive})
}

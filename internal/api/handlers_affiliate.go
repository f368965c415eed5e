/**
 * @description
 * HTTP handlers for the affiliate program: application, bank details, KYC
 * documents, dashboard, referrals and payout requests.
 */
package api

import (
	"encoding/json"
	"net/http"

	"github.com/vyaparlink/directory-server/internal/domain"
)

// handleAffiliateApply submits an affiliate application.
func (h *Handler) handleAffiliateApply(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var req domain.ApplyAffiliateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	profile, err := h.affiliates.Apply(r.Context(), userID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, profile)
}

// handleAffiliateProfile returns the caller's affiliate profile.
func (h *Handler) handleAffiliateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	profile, err := h.affiliates.GetProfile(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// handleAffiliateBankDetails stores the caller's payout bank details.
func (h *Handler) handleAffiliateBankDetails(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var req domain.BankDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.affiliates.UpdateBankDetails(r.Context(), userID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// handleAffiliateKYC stores the caller's identity document paths.
func (h *Handler) handleAffiliateKYC(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var req domain.KYCDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.affiliates.UploadKYCDocuments(r.Context(), userID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// handleAffiliateDashboard returns the caller's dashboard aggregate.
func (h *Handler) handleAffiliateDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	dashboard, err := h.affiliates.Dashboard(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}

// handleAffiliateReferrals returns the caller's referrals.
func (h *Handler) handleAffiliateReferrals(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	referrals, err := h.affiliates.ListReferrals(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if referrals == nil {
		referrals = []domain.AffiliateReferral{}
	}
	respondWithJSON(w, http.StatusOK, referrals)
}

// handleAffiliatePayments returns the caller's payout history.
func (h *Handler) handleAffiliatePayments(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	payments, err := h.affiliates.ListPayments(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if payments == nil {
		payments = []domain.AffiliatePayment{}
	}
	respondWithJSON(w, http.StatusOK, payments)
}

// handleRequestPayout creates a payout request for the caller's full
// available balance.
func (h *Handler) handleRequestPayout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	payment, err := h.ledger.RequestPayout(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, payment)
}

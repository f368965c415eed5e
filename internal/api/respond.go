/**
 * @description
 * JSON response helpers and the mapping from service errors to HTTP status
 * codes. Business-rule rejections always map to 4xx; only genuinely
 * unexpected failures surface as 500.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vyaparlink/directory-server/internal/app"
	"github.com/vyaparlink/directory-server/internal/store"
)

// respondWithJSON writes a JSON response.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes a JSON error response.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps a service or store error to its HTTP status.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrBusinessNotFound),
		errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrReviewNotFound),
		errors.Is(err, store.ErrEnquiryNotFound),
		errors.Is(err, store.ErrCouponRequestNotFound),
		errors.Is(err, store.ErrPlanNotFound),
		errors.Is(err, store.ErrSubscriptionNotFound),
		errors.Is(err, store.ErrAffiliateNotFound),
		errors.Is(err, store.ErrReferralNotFound),
		errors.Is(err, store.ErrPaymentNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, store.ErrAlreadyAffiliate),
		errors.Is(err, store.ErrActiveSubscriptionSet):
		respondWithError(w, http.StatusConflict, err.Error())

	case errors.Is(err, app.ErrPayoutBusy),
		errors.Is(err, store.ErrPayoutInFlight):
		respondWithError(w, http.StatusConflict, err.Error())

	case errors.Is(err, app.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, app.ErrNotListingOwner),
		errors.Is(err, app.ErrNotBusinessOwner):
		respondWithError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, app.ErrInvalidRegistration),
		errors.Is(err, app.ErrInvalidRating),
		errors.Is(err, app.ErrPlanInactive),
		errors.Is(err, app.ErrProofTooLarge),
		errors.Is(err, app.ErrProofBadType),
		errors.Is(err, app.ErrPaymentNotPending),
		errors.Is(err, app.ErrAffiliateNotApproved),
		errors.Is(err, app.ErrBankDetailsMissing),
		errors.Is(err, app.ErrInsufficientBalance):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		log.Printf("ERROR: unhandled service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

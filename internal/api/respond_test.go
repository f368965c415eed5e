package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vyaparlink/directory-server/internal/app"
	"github.com/vyaparlink/directory-server/internal/store"
)

func TestServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing business", store.ErrBusinessNotFound, http.StatusNotFound},
		{"missing subscription", store.ErrSubscriptionNotFound, http.StatusNotFound},
		{"missing affiliate", store.ErrAffiliateNotFound, http.StatusNotFound},
		{"email taken", store.ErrEmailTaken, http.StatusConflict},
		{"payout already in flight", store.ErrPayoutInFlight, http.StatusConflict},
		{"payout lock busy", app.ErrPayoutBusy, http.StatusConflict},
		{"bad credentials", app.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not the listing owner", app.ErrNotListingOwner, http.StatusForbidden},
		{"not the business owner", app.ErrNotBusinessOwner, http.StatusForbidden},
		{"payment not pending", app.ErrPaymentNotPending, http.StatusUnprocessableEntity},
		{"affiliate not approved", app.ErrAffiliateNotApproved, http.StatusUnprocessableEntity},
		{"bank details missing", app.ErrBankDetailsMissing, http.StatusUnprocessableEntity},
		{"balance below threshold", app.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{"invalid rating", app.ErrInvalidRating, http.StatusUnprocessableEntity},
		{"proof too large", app.ErrProofTooLarge, http.StatusUnprocessableEntity},
		{"unexpected failure", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, tc.err)
			if rec.Code != tc.want {
				t.Fatalf("expected status %d for %v, got %d", tc.want, tc.err, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected a JSON error body, got content type %q", ct)
			}
		})
	}
}

func TestBusinessRuleErrorsNeverSurfaceAs500(t *testing.T) {
	businessErrors := []error{
		app.ErrPaymentNotPending,
		app.ErrAffiliateNotApproved,
		app.ErrBankDetailsMissing,
		app.ErrInsufficientBalance,
		app.ErrPayoutBusy,
		app.ErrPlanInactive,
		app.ErrProofTooLarge,
		app.ErrProofBadType,
		store.ErrPayoutInFlight,
	}

	for _, err := range businessErrors {
		rec := httptest.NewRecorder()
		respondWithServiceError(rec, err)
		if rec.Code == http.StatusInternalServerError {
			t.Fatalf("business error %v surfaced as 500", err)
		}
	}
}

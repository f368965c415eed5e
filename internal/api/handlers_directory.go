/**
 * @description
 * HTTP handlers for the public directory and owner-facing listing management:
 * search, categories, listings, reviews, enquiries and coupon requests.
 */
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vyaparlink/directory-server/internal/domain"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// handleListCategories returns all categories.
func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.directory.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

// handleSearchBusinesses returns active listings matching query parameters.
func (h *Handler) handleSearchBusinesses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID, _ := strconv.ParseInt(q.Get("category_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := domain.BusinessSearchFilter{
		Query:      q.Get("q"),
		CategoryID: categoryID,
		Pincode:    q.Get("pincode"),
		Limit:      limit,
		Offset:     offset,
	}

	businesses, err := h.directory.Search(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if businesses == nil {
		businesses = []domain.Business{}
	}
	respondWithJSON(w, http.StatusOK, businesses)
}

// handleSearchSuggestions returns name completions for a search term.
func (h *Handler) handleSearchSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.directory.Suggestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, suggestions)
}

// handleGetBusiness returns one listing.
func (h *Handler) handleGetBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	business, err := h.directory.GetBusiness(r.Context(), businessID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, business)
}

// handleCreateBusiness creates a listing for the caller.
func (h *Handler) handleCreateBusiness(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var req domain.CreateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	business, err := h.directory.CreateListing(r.Context(), userID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, business)
}

// handleUpdateBusiness updates a listing owned by the caller.
func (h *Handler) handleUpdateBusiness(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	var req domain.CreateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	business, err := h.directory.UpdateListing(r.Context(), businessID, userID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, business)
}

// handleListOwnBusinesses returns the caller's listings.
func (h *Handler) handleListOwnBusinesses(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	businesses, err := h.directory.ListOwnListings(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if businesses == nil {
		businesses = []domain.Business{}
	}
	respondWithJSON(w, http.StatusOK, businesses)
}

// handleListReviews returns a business's approved reviews.
func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	reviews, err := h.directory.ListReviews(r.Context(), businessID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

// handleCreateReview submits a review, pending staff approval. The review is
// attributed to the caller when a valid token is present.
func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	var req domain.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var reviewer *uuid.UUID
	if userID, ok := UserFromContext(r.Context()); ok {
		reviewer = &userID
	}

	review, err := h.directory.SubmitReview(r.Context(), businessID, reviewer, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, review)
}

// handleCreateEnquiry submits an enquiry to a business.
func (h *Handler) handleCreateEnquiry(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	var req domain.CreateEnquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enquiry, err := h.directory.SubmitEnquiry(r.Context(), businessID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, enquiry)
}

// handleListEnquiries returns enquiries for a listing owned by the caller.
func (h *Handler) handleListEnquiries(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	enquiries, err := h.directory.ListEnquiries(r.Context(), businessID, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if enquiries == nil {
		enquiries = []domain.Enquiry{}
	}
	respondWithJSON(w, http.StatusOK, enquiries)
}

// handleMarkEnquiryResponded flags an enquiry as handled.
func (h *Handler) handleMarkEnquiryResponded(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())
	enquiryID, err := parseUUIDParam(r, "enquiryID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid enquiry id")
		return
	}

	if err := h.directory.MarkEnquiryResponded(r.Context(), enquiryID, userID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "responded"})
}

// handleRequestCoupon records a visitor's coupon request.
func (h *Handler) handleRequestCoupon(w http.ResponseWriter, r *http.Request) {
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}

	request, err := h.directory.RequestCoupon(r.Context(), businessID, req.Email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, request)
}

// handleSendCoupon assigns a coupon code and emails it to the requester.
func (h *Handler) handleSendCoupon(w http.ResponseWriter, r *http.Request) {
	requestID, err := parseUUIDParam(r, "requestID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req struct {
		CouponCode string `json:"coupon_code"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	request, err := h.directory.SendCoupon(r.Context(), requestID, req.CouponCode)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, request)
}

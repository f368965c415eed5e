/**
 * @description
 * HTTP handlers for subscription plans, plan selection and payment proof
 * uploads. Proof files are stored on local disk and their path recorded on
 * the subscription.
 */
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vyaparlink/directory-server/internal/domain"
)

// handleListPlans returns the active subscription plans.
func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subscriptions.ListPlans(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	respondWithJSON(w, http.StatusOK, plans)
}

// handleGetSubscription returns a business's current subscription.
func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())
	businessID, err := parseUUIDParam(r, "businessID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	sub, err := h.subscriptions.CurrentSubscription(r.Context(), businessID, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

// handleSelectPlan subscribes a business to a plan.
func (h *Handler) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var req domain.SelectPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.subscriptions.SelectPlan(r.Context(), userID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, sub)
}

// handleUploadPaymentProof receives a multipart payment proof and attaches it
// to the caller's pending subscription.
func (h *Handler) handleUploadPaymentProof(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())
	subscriptionID, err := parseUUIDParam(r, "subscriptionID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	if err := r.ParseMultipartForm(h.uploadMaxBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("proof")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "proof file is required")
		return
	}
	defer file.Close()

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	upload := domain.PaymentProofUpload{
		Path:        path,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
	}
	if err := h.subscriptions.UploadPaymentProof(r.Context(), subscriptionID, userID, upload); err != nil {
		os.Remove(path)
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"proof_path": path})
}

// saveUpload writes an uploaded file under the uploads directory with a
// random name, keeping the original extension.
func (h *Handler) saveUpload(file io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s%s", uuid.New(), filepath.Ext(originalName))
	path := filepath.Join(h.uploadDir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

/**
 * @description
 * This file sets up the HTTP router using the go-chi/chi router. It defines
 * the public, authenticated and staff route groups and applies middleware for
 * logging, CORS and authentication.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers all routes.
func NewRouter(h *Handler, jwtSecret string, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// Public routes.
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Get("/categories", h.handleListCategories)
		r.Get("/plans", h.handleListPlans)

		r.Get("/businesses", h.handleSearchBusinesses)
		r.Get("/businesses/suggestions", h.handleSearchSuggestions)
		r.Get("/businesses/{businessID}", h.handleGetBusiness)
		r.Get("/businesses/{businessID}/reviews", h.handleListReviews)
		r.Post("/businesses/{businessID}/reviews", h.handleCreateReview)
		r.Post("/businesses/{businessID}/enquiries", h.handleCreateEnquiry)
		r.Post("/businesses/{businessID}/coupon-requests", h.handleRequestCoupon)

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))

			r.Get("/me", h.handleGetProfile)
			r.Patch("/me", h.handleUpdateProfile)

			r.Post("/businesses", h.handleCreateBusiness)
			r.Put("/businesses/{businessID}", h.handleUpdateBusiness)
			r.Get("/my/businesses", h.handleListOwnBusinesses)
			r.Get("/businesses/{businessID}/enquiries", h.handleListEnquiries)
			r.Post("/enquiries/{enquiryID}/respond", h.handleMarkEnquiryResponded)
			r.Post("/coupon-requests/{requestID}/send", h.handleSendCoupon)

			r.Post("/subscriptions", h.handleSelectPlan)
			r.Get("/businesses/{businessID}/subscription", h.handleGetSubscription)
			r.Post("/subscriptions/{subscriptionID}/proof", h.handleUploadPaymentProof)

			r.Route("/affiliate", func(r chi.Router) {
				r.Post("/apply", h.handleAffiliateApply)
				r.Get("/profile", h.handleAffiliateProfile)
				r.Put("/bank-details", h.handleAffiliateBankDetails)
				r.Post("/kyc", h.handleAffiliateKYC)
				r.Get("/dashboard", h.handleAffiliateDashboard)
				r.Get("/referrals", h.handleAffiliateReferrals)
				r.Get("/payments", h.handleAffiliatePayments)
				r.Post("/payouts", h.handleRequestPayout)
			})
		})

		// Staff routes.
		r.Route("/admin", func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))
			r.Use(RequireStaff)

			r.Get("/subscriptions/pending", h.handleListPendingPayments)
			r.Post("/subscriptions/{subscriptionID}/verify", h.handleVerifyPayment)
			r.Post("/subscriptions/{subscriptionID}/reject", h.handleRejectPayment)

			r.Post("/affiliates/{profileID}/approve", h.handleApproveAffiliate)
			r.Post("/affiliates/{profileID}/reject", h.handleRejectAffiliate)
			r.Post("/affiliates/{profileID}/suspend", h.handleSuspendAffiliate)

			r.Post("/referrals/{referralID}/approve", h.handleApproveReferral)
			r.Post("/referrals/{referralID}/reject", h.handleRejectReferral)

			r.Post("/payouts/{paymentID}/complete", h.handleCompletePayout)
			r.Post("/payouts/{paymentID}/hold", h.handleHoldPayout)

			r.Post("/reviews/{reviewID}/approve", h.handleApproveReview)
			r.Post("/businesses/{businessID}/active", h.handleSetBusinessActive)
		})
	})

	return r
}

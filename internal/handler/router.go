package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/instasupply/pkg/httpmiddleware"
)

// Routes returns the /api router. Every route except the account endpoints
// and review submission requires a session token.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/request-otp", h.RequestOTP)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/change-email", h.ChangeEmail)
			r.With(h.Authenticate).Post("/logout", h.Logout)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", h.CreateReview)
			r.Group(func(r chi.Router) {
				r.Use(h.Authenticate)
				r.Get("/summary", h.ReviewSummary)
				r.Get("/", h.ListReviews)
				r.Post("/{id}/reply", h.ReplyToReview)
				r.Delete("/{id}", h.DeleteReview)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Route("/products", func(r chi.Router) {
				r.Get("/categories", h.ListCategories)
				r.Get("/", h.ListProducts)
				r.Post("/", h.CreateProduct)
				r.Get("/{id}", h.GetProduct)
				r.Put("/{id}", h.UpdateProduct)
				r.Delete("/{id}", h.DeleteProduct)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/recent", h.RecentOrders)
				r.Get("/", h.ListOrders)
				r.Post("/", h.PlaceOrder)
				r.Get("/{id}", h.GetOrder)
				r.Put("/{id}", h.UpdateOrder)
				r.Put("/{id}/status", h.UpdateOrderStatus)
				r.Delete("/{id}", h.DeleteOrder)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Put("/mark-all-read", h.MarkAllNotificationsRead)
				r.Put("/read-all", h.MarkAllNotificationsRead)
				r.Put("/{id}/read", h.MarkNotificationRead)
				r.Delete("/{id}", h.DeleteNotification)
			})

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/", h.ListCampaigns)
				r.Post("/", h.CreateCampaign)
				r.Get("/{id}", h.GetCampaign)
				r.Put("/{id}", h.UpdateCampaign)
				r.Get("/{id}/stats", h.CampaignStats)
				r.Get("/{id}/insights", h.CampaignInsights)
				r.Put("/{id}/metrics", h.RecordCampaignMetrics)
				r.Delete("/{id}", h.DeleteCampaign)
			})

			r.Route("/store", func(r chi.Router) {
				r.Get("/settings", h.GetStoreSettings)
				r.Put("/settings", h.UpdateStoreSettings)
				r.Post("/rating", h.RateStore)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", h.Me)
				r.Put("/profile", h.UpdateProfile)
				r.Get("/profile-info", h.ProfileInfo)
			})
		})
	})
	return r
}

package cmd

import (
	"net/http"

	"campus-food-backend/internal/handlers"
	"campus-food-backend/internal/middleware"
	"campus-food-backend/internal/models"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeHandlers struct {
	user         *handlers.UserHandler
	listing      *handlers.ListingHandler
	claim        *handlers.ClaimHandler
	reward       *handlers.RewardHandler
	notification *handlers.NotificationHandler
	delivery     *handlers.DeliveryHandler
	places       *handlers.PlacesHandler
	ws           *handlers.WebSocketHandler
}

// newRouter mounts the API. Role gates live here; services check ownership.
func newRouter(auth middleware.TokenValidator, h routeHandlers) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", h.user.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(auth))

			r.Get("/users/me", h.user.GetMe)

			r.Get("/listings", h.listing.ListAvailable)
			r.Get("/listings/{listing_id}", h.listing.GetListing)
			r.Post("/listings/{listing_id}/claims", h.claim.CreateClaim)
			r.Get("/claims/mine", h.claim.MyClaims)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleCanteenOrganizer))
				r.Post("/listings", h.listing.CreateListing)
				r.Get("/listings/mine", h.listing.ListMine)
				r.Get("/listings/{listing_id}/claims/pending", h.listing.PendingClaims)
				r.Post("/listings/{listing_id}/claims/{claim_id}/delivery", h.claim.RespondToDelivery)
				r.Post("/listings/{listing_id}/claims/{claim_id}/confirm", h.claim.ConfirmPickup)
				r.Post("/listings/{listing_id}/claims/{claim_id}/cancel", h.claim.CancelPickup)
				r.Post("/deliveries", h.delivery.RequestDelivery)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleNGO))
				r.Post("/listings/{listing_id}/bookings", h.claim.CreateBooking)
				r.Get("/bookings", h.claim.Bookings)
			})

			r.Get("/rewards", h.reward.Profile)
			r.Get("/rewards/redemptions", h.reward.Redemptions)
			r.With(middleware.RequireRole(models.RoleStudent)).Post("/rewards/redeem", h.reward.Redeem)

			r.Get("/notifications", h.notification.List)
			r.Post("/notifications/read-all", h.notification.MarkAllRead)
			r.Post("/notifications/{notification_id}/read", h.notification.MarkRead)
			r.Post("/push/subscriptions", h.notification.Subscribe)
			r.Delete("/push/subscriptions/{device_token}", h.notification.Unsubscribe)

			r.Post("/volunteers", h.delivery.RegisterVolunteer)
			r.Get("/deliveries/open", h.delivery.ListOpen)
			r.Get("/deliveries/mine", h.delivery.ListMine)
			r.Post("/deliveries/{delivery_id}/accept", h.delivery.Accept)
			r.Patch("/deliveries/{delivery_id}/status", h.delivery.UpdateStatus)

			r.Get("/places/nearby", h.places.Nearby)
		})
	})

	// WebSocket route
	r.Get("/ws", h.ws.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package handlers

import (
	"net/http"

	"campus-food-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ClaimHandler handles claim lifecycle HTTP requests
type ClaimHandler struct {
	claimService *services.ClaimService
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(claimService *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// ClaimRequest represents a request to claim part of a listing
type ClaimRequest struct {
	Quantity int                      `json:"quantity"`
	Delivery services.DeliveryRequest `json:"delivery"`
}

// DeliveryResponseRequest carries the provider's delivery decision
type DeliveryResponseRequest struct {
	Accepted bool `json:"accepted"`
}

// ConfirmRequest carries the claimant's pickup code
type ConfirmRequest struct {
	OTP string `json:"otp"`
}

// CreateClaim handles POST /api/v1/listings/{listing_id}/claims
func (h *ClaimHandler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claim, err := h.claimService.CreateClaim(r.Context(), identity(r), chi.URLParam(r, "listing_id"), req.Quantity, req.Delivery)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, claim)
}

// CreateBooking handles POST /api/v1/listings/{listing_id}/bookings
func (h *ClaimHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claim, err := h.claimService.CreateBooking(r.Context(), identity(r), chi.URLParam(r, "listing_id"), req.Quantity, req.Delivery)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, claim)
}

// RespondToDelivery handles POST /api/v1/listings/{listing_id}/claims/{claim_id}/delivery
func (h *ClaimHandler) RespondToDelivery(w http.ResponseWriter, r *http.Request) {
	var req DeliveryResponseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claim, err := h.claimService.RespondToDelivery(r.Context(), identity(r),
		chi.URLParam(r, "listing_id"), chi.URLParam(r, "claim_id"), req.Accepted)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, claim)
}

// ConfirmPickup handles POST /api/v1/listings/{listing_id}/claims/{claim_id}/confirm
func (h *ClaimHandler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claim, err := h.claimService.ConfirmPickup(r.Context(), identity(r),
		chi.URLParam(r, "listing_id"), chi.URLParam(r, "claim_id"), req.OTP)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	claim.OTP = ""
	respondJSON(w, http.StatusOK, claim)
}

// CancelPickup handles POST /api/v1/listings/{listing_id}/claims/{claim_id}/cancel
func (h *ClaimHandler) CancelPickup(w http.ResponseWriter, r *http.Request) {
	claim, err := h.claimService.CancelPickup(r.Context(), identity(r),
		chi.URLParam(r, "listing_id"), chi.URLParam(r, "claim_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	claim.OTP = ""
	respondJSON(w, http.StatusOK, claim)
}

// MyClaims handles GET /api/v1/claims/mine
func (h *ClaimHandler) MyClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claimService.ClaimsByClaimant(r.Context(), identity(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, claims)
}

// Bookings handles GET /api/v1/bookings
func (h *ClaimHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.claimService.BookingsForNGO(r.Context(), identity(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

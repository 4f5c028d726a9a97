package handlers

import (
	"net/http"

	"campus-food-backend/internal/models"
	"campus-food-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// DeliveryHandler handles volunteer and delivery HTTP requests
type DeliveryHandler struct {
	deliveryService *services.DeliveryService
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryService *services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService}
}

// VolunteerRequest registers the caller as a volunteer
type VolunteerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// DeliveryCreateRequest asks for a volunteer delivery
type DeliveryCreateRequest struct {
	ListingID       string `json:"listing_id"`
	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`
}

// StatusRequest moves a delivery to a new status
type StatusRequest struct {
	Status models.CourierStatus `json:"status"`
}

// RegisterVolunteer handles POST /api/v1/volunteers
func (h *DeliveryHandler) RegisterVolunteer(w http.ResponseWriter, r *http.Request) {
	var req VolunteerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.deliveryService.RegisterVolunteer(r.Context(), identity(r), req.Name, req.Phone)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

// RequestDelivery handles POST /api/v1/deliveries
func (h *DeliveryHandler) RequestDelivery(w http.ResponseWriter, r *http.Request) {
	var req DeliveryCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.deliveryService.RequestDelivery(r.Context(), identity(r), req.ListingID, req.PickupLocation, req.DropoffLocation)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

// ListOpen handles GET /api/v1/deliveries/open
func (h *DeliveryHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.deliveryService.ListOpen(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deliveries)
}

// ListMine handles GET /api/v1/deliveries/mine
func (h *DeliveryHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.deliveryService.ListForVolunteer(r.Context(), identity(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deliveries)
}

// Accept handles POST /api/v1/deliveries/{delivery_id}/accept
func (h *DeliveryHandler) Accept(w http.ResponseWriter, r *http.Request) {
	d, err := h.deliveryService.AcceptDelivery(r.Context(), identity(r), chi.URLParam(r, "delivery_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// UpdateStatus handles PATCH /api/v1/deliveries/{delivery_id}/status
func (h *DeliveryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.deliveryService.UpdateStatus(r.Context(), identity(r), chi.URLParam(r, "delivery_id"), req.Status)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

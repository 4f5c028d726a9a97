package handlers

import (
	"net/http"
	"strconv"

	"campus-food-backend/internal/services"
)

// PlacesHandler handles nearby organization lookups
type PlacesHandler struct {
	finder services.PlaceFinder
}

// NewPlacesHandler creates a new places handler
func NewPlacesHandler(finder services.PlaceFinder) *PlacesHandler {
	return &PlacesHandler{finder: finder}
}

// Nearby handles GET /api/v1/places/nearby?lat=..&lng=..&radius=..
func (h *PlacesHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		respondError(w, "lat must be a number", http.StatusBadRequest)
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		respondError(w, "lng must be a number", http.StatusBadRequest)
		return
	}

	places, err := h.finder.Nearby(r.Context(), lat, lng, q.Get("radius"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, places)
}

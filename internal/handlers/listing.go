package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"campus-food-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

const maxImageSize = 10 << 20

// ListingHandler handles listing-related HTTP requests
type ListingHandler struct {
	listingService *services.ListingService
	claimService   *services.ClaimService
}

// NewListingHandler creates a new listing handler
func NewListingHandler(listingService *services.ListingService, claimService *services.ClaimService) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		claimService:   claimService,
	}
}

// CreateListing handles POST /api/v1/listings (multipart form with an image)
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	in, err := parseNewListing(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	image, err := readImage(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	listing, err := h.listingService.CreateListing(r.Context(), identity(r), in, image)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, listing)
}

// ListAvailable handles GET /api/v1/listings
func (h *ListingHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listingService.ListAvailable(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listings)
}

// ListMine handles GET /api/v1/listings/mine
func (h *ListingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listingService.ListMine(r.Context(), identity(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listings)
}

// GetListing handles GET /api/v1/listings/{listing_id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listingService.Get(r.Context(), identity(r), chi.URLParam(r, "listing_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// PendingClaims handles GET /api/v1/listings/{listing_id}/claims/pending
func (h *ListingHandler) PendingClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claimService.PendingClaims(r.Context(), identity(r), chi.URLParam(r, "listing_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, claims)
}

type formError string

func (e formError) Error() string { return string(e) }

func parseNewListing(r *http.Request) (services.NewListing, error) {
	in := services.NewListing{
		Title:            r.FormValue("title"),
		Source:           r.FormValue("source"),
		FoodType:         r.FormValue("food_type"),
		StorageCondition: r.FormValue("storage_condition"),
	}

	var err error
	if in.Quantity, err = strconv.Atoi(r.FormValue("quantity")); err != nil {
		return in, formError("quantity must be an integer")
	}
	if v := r.FormValue("points_per_unit"); v != "" {
		if in.PointsPerUnit, err = strconv.Atoi(v); err != nil {
			return in, formError("points_per_unit must be an integer")
		}
	}
	if in.ExpiresAt, err = time.Parse(time.RFC3339, r.FormValue("expires_at")); err != nil {
		return in, formError("expires_at must be an RFC3339 timestamp")
	}
	if v := r.FormValue("prepared_at"); v != "" {
		if in.PreparedAt, err = time.Parse(time.RFC3339, v); err != nil {
			return in, formError("prepared_at must be an RFC3339 timestamp")
		}
	}
	return in, nil
}

func readImage(r *http.Request) (*services.Image, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, formError("image is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return nil, formError("failed to read image")
	}
	if len(data) > maxImageSize {
		return nil, formError("image is too large")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &services.Image{ContentType: contentType, Data: data}, nil
}

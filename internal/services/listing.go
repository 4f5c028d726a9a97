package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campus-food-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NewListing is the provider supplied part of a listing
type NewListing struct {
	Title            string    `json:"title"`
	Source           string    `json:"source"`
	Quantity         int       `json:"quantity"`
	FoodType         string    `json:"food_type"`
	StorageCondition string    `json:"storage_condition"`
	PreparedAt       time.Time `json:"prepared_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	PointsPerUnit    int       `json:"points_per_unit"`
}

// Image is an uploaded photo
type Image struct {
	ContentType string
	Data        []byte
}

// ListingService handles listing publication and browsing
type ListingService struct {
	store    *ListingStore
	images   ImageStore
	notifier *NotificationService
}

// NewListingService creates a new listing service
func NewListingService(store *ListingStore, images ImageStore, notifier *NotificationService) *ListingService {
	return &ListingService{
		store:    store,
		images:   images,
		notifier: notifier,
	}
}

// CreateListing publishes surplus food. The photo must upload before anything
// is stored; students and NGOs are told about the listing afterwards.
func (s *ListingService) CreateListing(ctx context.Context, caller Identity, in NewListing, image *Image) (*models.FoodListing, error) {
	if caller.Role != models.RoleCanteenOrganizer {
		return nil, fmt.Errorf("%w: only canteen organizers can post listings", ErrUnauthorized)
	}
	if err := validateListing(in, s.store.now()); err != nil {
		return nil, err
	}
	if image == nil || len(image.Data) == 0 {
		return nil, invalid("image is required")
	}

	imageURL, err := s.images.Upload(ctx, caller.UserID, image.ContentType, image.Data)
	if err != nil {
		return nil, err
	}

	now := s.store.now()
	listing := &models.FoodListing{
		ID:               uuid.New().String(),
		Title:            strings.TrimSpace(in.Title),
		Source:           in.Source,
		Quantity:         in.Quantity,
		FoodType:         in.FoodType,
		StorageCondition: in.StorageCondition,
		PreparedAt:       in.PreparedAt,
		ExpiresAt:        in.ExpiresAt,
		ImageURL:         imageURL,
		Status:           models.ListingAvailable,
		ProviderID:       caller.UserID,
		PointsPerUnit:    in.PointsPerUnit,
		Claims:           []*models.Claim{},
		CreatedAt:        now,
	}
	if err := s.store.Create(ctx, listing); err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listing.ID).
		Str("provider_id", caller.UserID).
		Int("quantity", listing.Quantity).
		Time("expires_at", listing.ExpiresAt).
		Msg("Listing created")

	s.notifier.AnnounceListing(ctx, listing)

	return listing, nil
}

// Get returns a listing. Claim OTPs are only kept for the claimant.
func (s *ListingService) Get(ctx context.Context, caller Identity, listingID string) (*models.FoodListing, error) {
	listing, err := s.store.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	for _, c := range listing.Claims {
		if c.ClaimantID != caller.UserID {
			c.OTP = ""
		}
	}
	return listing, nil
}

// ListAvailable returns listings that can still be claimed
func (s *ListingService) ListAvailable(ctx context.Context) ([]*models.FoodListing, error) {
	listings, err := s.store.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []*models.FoodListing{}
	}
	return listings, nil
}

// ListMine returns the caller's own listings
func (s *ListingService) ListMine(ctx context.Context, caller Identity) ([]*models.FoodListing, error) {
	listings, err := s.store.ListByProvider(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []*models.FoodListing{}
	}
	return listings, nil
}

func validateListing(in NewListing, now time.Time) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return invalid("title is required")
	case in.Quantity <= 0:
		return invalid("quantity must be positive")
	case in.PointsPerUnit < 0:
		return invalid("points_per_unit must not be negative")
	case in.ExpiresAt.IsZero() || !in.ExpiresAt.After(now):
		return invalid("expires_at must be in the future")
	case !in.PreparedAt.IsZero() && in.PreparedAt.After(in.ExpiresAt):
		return invalid("prepared_at must be before expires_at")
	}
	return nil
}

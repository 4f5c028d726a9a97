package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-food-backend/internal/models"
	"campus-food-backend/internal/repository"

	"github.com/google/uuid"
)

// ListingRepository is the persistence behind the listing store. Mutate must
// run fn against a locked copy of the aggregate and persist nothing when fn
// returns an error.
type ListingRepository interface {
	Create(ctx context.Context, l *models.FoodListing) error
	GetByID(ctx context.Context, id string) (*models.FoodListing, error)
	ListAvailable(ctx context.Context, now time.Time) ([]*models.FoodListing, error)
	ListByProvider(ctx context.Context, providerID string) ([]*models.FoodListing, error)
	ListClaimsByClaimant(ctx context.Context, claimantID string) ([]*models.Claim, error)
	Mutate(ctx context.Context, id string, fn repository.Mutation) (*models.FoodListing, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeliveryRequest carries the optional courier details of a claim
type DeliveryRequest struct {
	Requested bool   `json:"requested"`
	Address   string `json:"address"`
}

// ListingStore owns quantity bookkeeping and status derivation for listings.
// Every operation is one locked read-modify-write of a single listing.
type ListingStore struct {
	repo ListingRepository
	otp  func() (string, error)
	now  func() time.Time
}

// NewListingStore creates a new listing store
func NewListingStore(repo ListingRepository) *ListingStore {
	return &ListingStore{repo: repo, otp: GenerateOTP, now: time.Now}
}

// Get retrieves a listing with its claims
func (s *ListingStore) Get(ctx context.Context, listingID string) (*models.FoodListing, error) {
	l, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateNotFound(err, "listing", listingID)
	}
	return l, nil
}

// Create stores a new listing
func (s *ListingStore) Create(ctx context.Context, l *models.FoodListing) error {
	return s.repo.Create(ctx, l)
}

// ListAvailable returns listings that can still be claimed
func (s *ListingStore) ListAvailable(ctx context.Context) ([]*models.FoodListing, error) {
	return s.repo.ListAvailable(ctx, s.now())
}

// ListByProvider returns every listing posted by a provider
func (s *ListingStore) ListByProvider(ctx context.Context, providerID string) ([]*models.FoodListing, error) {
	return s.repo.ListByProvider(ctx, providerID)
}

// ClaimsByClaimant returns a user's claims across listings
func (s *ListingStore) ClaimsByClaimant(ctx context.Context, claimantID string) ([]*models.Claim, error) {
	return s.repo.ListClaimsByClaimant(ctx, claimantID)
}

// Reserve creates a pending claim on a listing. The strategy decides whether
// quantity is taken now and whether a booking mirror is written with it.
func (s *ListingStore) Reserve(ctx context.Context, listingID string, claimant Identity, qty int, delivery DeliveryRequest) (*models.FoodListing, *models.Claim, error) {
	if qty <= 0 {
		return nil, nil, invalid("quantity must be positive")
	}
	if delivery.Requested && delivery.Address == "" {
		return nil, nil, invalid("delivery address is required when delivery is requested")
	}

	otp, err := s.otp()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	strategy := strategyFor(claimant.Role)
	var claim *models.Claim

	listing, err := s.repo.Mutate(ctx, listingID, func(l *models.FoodListing) (*models.Booking, error) {
		now := s.now()
		if l.Status != models.ListingAvailable || !now.Before(l.ExpiresAt) || l.Quantity < qty {
			return nil, fmt.Errorf("listing %s has %d left: %w", l.ID, l.Quantity, ErrInsufficientQuantity)
		}

		claim = &models.Claim{
			ID:                uuid.New().String(),
			ListingID:         l.ID,
			ClaimantID:        claimant.UserID,
			ClaimantRole:      claimant.Role,
			Quantity:          qty,
			OTP:               otp,
			DeliveryRequested: delivery.Requested,
			DeliveryAddress:   delivery.Address,
			DeliveryStatus:    models.DeliveryNone,
			PickupStatus:      models.PickupPending,
			ClaimedAt:         now,
		}
		if delivery.Requested {
			claim.DeliveryStatus = models.DeliveryPending
		}
		l.Claims = append(l.Claims, claim)

		if strategy.DeductsOnClaim() {
			l.Quantity -= qty
		}
		return strategy.Mirror(claim), nil
	})
	if err != nil {
		return nil, nil, translateNotFound(err, "listing", listingID)
	}
	return listing, claim, nil
}

// ConfirmPickup marks a pending claim collected after checking its OTP and
// takes deferred quantity from the listing.
func (s *ListingStore) ConfirmPickup(ctx context.Context, listingID, claimID, otp string) (*models.FoodListing, *models.Claim, error) {
	var claim *models.Claim

	listing, err := s.repo.Mutate(ctx, listingID, func(l *models.FoodListing) (*models.Booking, error) {
		c := l.FindClaim(claimID)
		if c == nil {
			return nil, ErrClaimNotFound
		}
		if c.PickupStatus.Terminal() {
			return nil, ErrAlreadyConfirmed
		}
		if c.OTP != otp {
			return nil, ErrInvalidOTP
		}

		if !strategyFor(c.ClaimantRole).DeductsOnClaim() {
			if l.Quantity < c.Quantity {
				return nil, fmt.Errorf("listing %s has %d left: %w", l.ID, l.Quantity, ErrInsufficientQuantity)
			}
			l.Quantity -= c.Quantity
		}
		if l.Quantity <= 0 {
			l.Status = models.ListingClaimed
		}

		c.PickupStatus = models.PickupConfirmed
		claim = c
		return nil, nil
	})
	if err != nil {
		return nil, nil, translateNotFound(err, "listing", listingID)
	}
	return listing, claim, nil
}

// CancelPickup cancels a pending claim and restores the listing to its
// pre-reservation quantity.
func (s *ListingStore) CancelPickup(ctx context.Context, listingID, claimID string) (*models.FoodListing, *models.Claim, error) {
	var claim *models.Claim

	listing, err := s.repo.Mutate(ctx, listingID, func(l *models.FoodListing) (*models.Booking, error) {
		c := l.FindClaim(claimID)
		if c == nil {
			return nil, ErrClaimNotFound
		}
		if c.PickupStatus != models.PickupPending {
			return nil, ErrNotPending
		}

		if strategyFor(c.ClaimantRole).DeductsOnClaim() {
			l.Quantity += c.Quantity
		}
		if l.Status == models.ListingClaimed && l.Quantity > 0 {
			l.Status = models.ListingAvailable
		}

		c.PickupStatus = models.PickupCancelled
		claim = c
		return nil, nil
	})
	if err != nil {
		return nil, nil, translateNotFound(err, "listing", listingID)
	}
	return listing, claim, nil
}

// RespondToDelivery records the provider's answer to a claim's delivery
// request. Only pending requests on claims still awaiting pickup qualify.
func (s *ListingStore) RespondToDelivery(ctx context.Context, listingID, claimID string, accepted bool) (*models.FoodListing, *models.Claim, error) {
	var claim *models.Claim

	listing, err := s.repo.Mutate(ctx, listingID, func(l *models.FoodListing) (*models.Booking, error) {
		c := l.FindClaim(claimID)
		if c == nil || c.PickupStatus.Terminal() || c.DeliveryStatus != models.DeliveryPending {
			return nil, ErrClaimNotFound
		}

		c.DeliveryStatus = models.DeliveryRejected
		if accepted {
			c.DeliveryStatus = models.DeliveryAccepted
		}
		claim = c
		return nil, nil
	})
	if err != nil {
		return nil, nil, translateNotFound(err, "listing", listingID)
	}
	return listing, claim, nil
}

func translateNotFound(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return err
}

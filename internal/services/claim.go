package services

import (
	"context"
	"fmt"

	"campus-food-backend/internal/metrics"
	"campus-food-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// BookingLister reads the NGO booking ledger
type BookingLister interface {
	ListByNGO(ctx context.Context, ngoID string) ([]*models.Booking, error)
}

// ClaimService drives the claim lifecycle: reservation, delivery response,
// OTP pickup confirmation and cancellation. Notifications and rewards run
// after the listing write has committed and never undo it.
type ClaimService struct {
	store    *ListingStore
	rewards  *RewardService
	notifier *NotificationService
	bookings BookingLister
	limiter  AttemptLimiter
}

// NewClaimService creates a new claim service. limiter may be nil to disable
// OTP attempt throttling.
func NewClaimService(
	store *ListingStore,
	rewards *RewardService,
	notifier *NotificationService,
	bookings BookingLister,
	limiter AttemptLimiter,
) *ClaimService {
	return &ClaimService{
		store:    store,
		rewards:  rewards,
		notifier: notifier,
		bookings: bookings,
		limiter:  limiter,
	}
}

// CreateClaim reserves quantity on a listing for any authenticated user
func (s *ClaimService) CreateClaim(ctx context.Context, caller Identity, listingID string, qty int, delivery DeliveryRequest) (*models.Claim, error) {
	listing, claim, err := s.store.Reserve(ctx, listingID, caller, qty, delivery)
	if err != nil {
		return nil, err
	}

	metrics.ClaimsCreatedTotal.WithLabelValues(string(caller.Role)).Inc()
	log.Info().
		Str("listing_id", listing.ID).
		Str("claim_id", claim.ID).
		Str("claimant_id", caller.UserID).
		Str("role", string(caller.Role)).
		Int("quantity", qty).
		Int("remaining", listing.Quantity).
		Msg("Claim created")

	providerType := models.NotificationConfirmPickup
	providerMsg := fmt.Sprintf("%d x %s claimed. Confirm the pickup with the claimant's code.", qty, listing.Title)
	if claim.DeliveryRequested {
		providerType = models.NotificationDeliveryRequest
		providerMsg = fmt.Sprintf("Delivery requested for %d x %s to %s", qty, listing.Title, claim.DeliveryAddress)
	}

	runAfterCommit(ctx, "create_claim",
		hook{"notify_claimant_otp", func(ctx context.Context) error {
			msg := fmt.Sprintf("Your pickup code for %s is %s", listing.Title, claim.OTP)
			_, err := s.notifier.Notify(ctx, caller.UserID, models.NotificationClaimOTP, msg, listing.ID, claim.ID)
			return err
		}},
		hook{"notify_provider", func(ctx context.Context) error {
			_, err := s.notifier.Notify(ctx, listing.ProviderID, providerType, providerMsg, listing.ID, claim.ID)
			return err
		}},
	)

	return claim, nil
}

// CreateBooking is the NGO-only entry point for claims
func (s *ClaimService) CreateBooking(ctx context.Context, caller Identity, listingID string, qty int, delivery DeliveryRequest) (*models.Claim, error) {
	if caller.Role != models.RoleNGO {
		return nil, fmt.Errorf("%w: only NGOs can book listings", ErrUnauthorized)
	}
	return s.CreateClaim(ctx, caller, listingID, qty, delivery)
}

// RespondToDelivery records the provider's answer to a delivery request
func (s *ClaimService) RespondToDelivery(ctx context.Context, caller Identity, listingID, claimID string, accepted bool) (*models.Claim, error) {
	if _, err := s.ownedListing(ctx, caller, listingID); err != nil {
		return nil, err
	}

	listing, claim, err := s.store.RespondToDelivery(ctx, listingID, claimID, accepted)
	if err != nil {
		return nil, err
	}

	outcome := models.NotificationDeliveryRejected
	msg := fmt.Sprintf("Delivery for %s was declined. You can still pick it up.", listing.Title)
	if accepted {
		outcome = models.NotificationDeliveryAccepted
		msg = fmt.Sprintf("Delivery for %s was accepted", listing.Title)
	}

	hooks := []hook{
		{"retire_delivery_request", func(ctx context.Context) error {
			return s.notifier.RetireByClaimAndType(ctx, claim.ID, models.NotificationDeliveryRequest)
		}},
		{"notify_claimant_delivery", func(ctx context.Context) error {
			_, err := s.notifier.Notify(ctx, claim.ClaimantID, outcome, msg, listing.ID, claim.ID)
			return err
		}},
	}
	if accepted {
		hooks = append(hooks, hook{"notify_provider_confirm", func(ctx context.Context) error {
			msg := fmt.Sprintf("Confirm the pickup of %d x %s when the volunteer collects it", claim.Quantity, listing.Title)
			_, err := s.notifier.Notify(ctx, listing.ProviderID, models.NotificationConfirmPickup, msg, listing.ID, claim.ID)
			return err
		}})
	}
	runAfterCommit(ctx, "respond_to_delivery", hooks...)

	return claim, nil
}

// ConfirmPickup completes a claim when the provider enters the claimant's OTP
func (s *ClaimService) ConfirmPickup(ctx context.Context, caller Identity, listingID, claimID, otp string) (*models.Claim, error) {
	if _, err := s.ownedListing(ctx, caller, listingID); err != nil {
		return nil, err
	}
	if err := s.checkAttempt(ctx, claimID); err != nil {
		return nil, err
	}

	listing, claim, err := s.store.ConfirmPickup(ctx, listingID, claimID, otp)
	if err != nil {
		return nil, err
	}

	metrics.PickupsConfirmedTotal.Inc()
	log.Info().
		Str("listing_id", listing.ID).
		Str("claim_id", claim.ID).
		Int("remaining", listing.Quantity).
		Str("status", string(listing.Status)).
		Msg("Pickup confirmed")

	ppu := s.rewards.PointsPerUnit(listing)
	runAfterCommit(ctx, "confirm_pickup",
		hook{"award_rewards", func(ctx context.Context) error {
			_, err := s.rewards.AwardForConfirmedPickup(ctx, claim.ClaimantID, ppu, claim.Quantity)
			return err
		}},
		hook{"retire_confirm_pickup", func(ctx context.Context) error {
			return s.notifier.RetireByClaimAndType(ctx, claim.ID, models.NotificationConfirmPickup)
		}},
		s.retireDeliveryRequest(claim),
		hook{"notify_claimant_confirmed", func(ctx context.Context) error {
			msg := fmt.Sprintf("Pickup of %s confirmed. You earned %d points!", listing.Title, ppu*claim.Quantity)
			_, err := s.notifier.Notify(ctx, claim.ClaimantID, models.NotificationPickupConfirmed, msg, listing.ID, claim.ID)
			return err
		}},
		hook{"reset_otp_attempts", func(ctx context.Context) error {
			if s.limiter == nil {
				return nil
			}
			return s.limiter.Reset(ctx, claim.ID)
		}},
	)

	return claim, nil
}

// CancelPickup cancels a pending claim and returns its quantity to the pool
func (s *ClaimService) CancelPickup(ctx context.Context, caller Identity, listingID, claimID string) (*models.Claim, error) {
	if _, err := s.ownedListing(ctx, caller, listingID); err != nil {
		return nil, err
	}

	listing, claim, err := s.store.CancelPickup(ctx, listingID, claimID)
	if err != nil {
		return nil, err
	}

	metrics.PickupsCancelledTotal.Inc()
	log.Info().
		Str("listing_id", listing.ID).
		Str("claim_id", claim.ID).
		Int("remaining", listing.Quantity).
		Msg("Pickup cancelled")

	runAfterCommit(ctx, "cancel_pickup",
		hook{"notify_claimant_cancelled", func(ctx context.Context) error {
			msg := fmt.Sprintf("Your pickup of %s was cancelled", listing.Title)
			_, err := s.notifier.Notify(ctx, claim.ClaimantID, models.NotificationPickupCancelled, msg, listing.ID, claim.ID)
			return err
		}},
		hook{"retire_confirm_pickup", func(ctx context.Context) error {
			return s.notifier.RetireByClaimAndType(ctx, claim.ID, models.NotificationConfirmPickup)
		}},
		s.retireDeliveryRequest(claim),
	)

	return claim, nil
}

// retireDeliveryRequest drops an unanswered delivery request once the claim
// can no longer be delivered
func (s *ClaimService) retireDeliveryRequest(claim *models.Claim) hook {
	return hook{"retire_delivery_request", func(ctx context.Context) error {
		if claim.DeliveryStatus != models.DeliveryPending {
			return nil
		}
		return s.notifier.RetireByClaimAndType(ctx, claim.ID, models.NotificationDeliveryRequest)
	}}
}

// PendingClaims lists the claims awaiting pickup on one of the caller's
// listings. OTPs are withheld from the provider.
func (s *ClaimService) PendingClaims(ctx context.Context, caller Identity, listingID string) ([]*models.Claim, error) {
	listing, err := s.ownedListing(ctx, caller, listingID)
	if err != nil {
		return nil, err
	}

	pending := []*models.Claim{}
	for _, c := range listing.Claims {
		if c.PickupStatus != models.PickupPending {
			continue
		}
		redacted := *c
		redacted.OTP = ""
		pending = append(pending, &redacted)
	}
	return pending, nil
}

// ClaimsByClaimant lists the caller's own claims across listings
func (s *ClaimService) ClaimsByClaimant(ctx context.Context, caller Identity) ([]*models.Claim, error) {
	claims, err := s.store.ClaimsByClaimant(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		claims = []*models.Claim{}
	}
	return claims, nil
}

// BookingsForNGO lists the caller's booking ledger
func (s *ClaimService) BookingsForNGO(ctx context.Context, caller Identity) ([]*models.Booking, error) {
	if caller.Role != models.RoleNGO {
		return nil, fmt.Errorf("%w: only NGOs have bookings", ErrUnauthorized)
	}
	bookings, err := s.bookings.ListByNGO(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return bookings, nil
}

func (s *ClaimService) ownedListing(ctx context.Context, caller Identity, listingID string) (*models.FoodListing, error) {
	listing, err := s.store.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.ProviderID != caller.UserID {
		return nil, fmt.Errorf("%w: listing %s belongs to another provider", ErrUnauthorized, listingID)
	}
	return listing, nil
}

// checkAttempt fails open when the limiter backend is unavailable
func (s *ClaimService) checkAttempt(ctx context.Context, claimID string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, claimID)
	if err != nil {
		log.Warn().Err(err).Str("claim_id", claimID).Msg("OTP limiter unavailable")
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: claim %s", ErrTooManyAttempts, claimID)
	}
	return nil
}

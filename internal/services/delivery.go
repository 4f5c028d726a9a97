package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-food-backend/internal/models"
	"campus-food-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VolunteerStore persists volunteer profiles
type VolunteerStore interface {
	Create(ctx context.Context, v *models.Volunteer) error
	GetByID(ctx context.Context, id string) (*models.Volunteer, error)
	GetByUserID(ctx context.Context, userID string) (*models.Volunteer, error)
}

// DeliveryStore persists volunteer deliveries
type DeliveryStore interface {
	Create(ctx context.Context, d *models.Delivery) error
	GetByID(ctx context.Context, id string) (*models.Delivery, error)
	ListByVolunteer(ctx context.Context, volunteerID string) ([]*models.Delivery, error)
	ListOpen(ctx context.Context) ([]*models.Delivery, error)
	Assign(ctx context.Context, deliveryID, volunteerID string) (*models.Delivery, error)
	Mutate(ctx context.Context, id string, fn repository.DeliveryMutation) (*models.Delivery, error)
}

// courierSteps orders the forward path of a delivery
var courierSteps = map[models.CourierStatus]int{
	models.CourierPending:   0,
	models.CourierOnTheWay:  1,
	models.CourierPickedUp:  2,
	models.CourierDelivered: 3,
}

// canAdvance reports whether a delivery may move from one status to another.
// Statuses only move one step forward; cancellation is allowed until the
// delivery is finished.
func canAdvance(from, to models.CourierStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == models.CourierCancelled {
		return true
	}
	next, ok := courierSteps[to]
	return ok && next == courierSteps[from]+1
}

// DeliveryService coordinates volunteers and the deliveries they run
type DeliveryService struct {
	deliveries DeliveryStore
	volunteers VolunteerStore
	listings   *ListingStore
	notifier   *NotificationService
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(deliveries DeliveryStore, volunteers VolunteerStore, listings *ListingStore, notifier *NotificationService) *DeliveryService {
	return &DeliveryService{
		deliveries: deliveries,
		volunteers: volunteers,
		listings:   listings,
		notifier:   notifier,
	}
}

// RegisterVolunteer creates the caller's volunteer profile
func (s *DeliveryService) RegisterVolunteer(ctx context.Context, caller Identity, name, phone string) (*models.Volunteer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}

	v := &models.Volunteer{
		ID:        uuid.New().String(),
		UserID:    caller.UserID,
		Name:      name,
		Phone:     strings.TrimSpace(phone),
		Status:    models.VolunteerAvailable,
		CreatedAt: time.Now(),
	}
	if err := s.volunteers.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: user already has a volunteer profile", ErrConflict)
		}
		return nil, err
	}

	log.Info().Str("volunteer_id", v.ID).Str("user_id", caller.UserID).Msg("Volunteer registered")
	return v, nil
}

// RequestDelivery asks for a volunteer to move food from one of the caller's
// listings. The first available volunteer, if any, is assigned at once.
func (s *DeliveryService) RequestDelivery(ctx context.Context, caller Identity, listingID, pickup, dropoff string) (*models.Delivery, error) {
	if caller.Role != models.RoleCanteenOrganizer {
		return nil, fmt.Errorf("%w: only canteen organizers can request deliveries", ErrUnauthorized)
	}
	if strings.TrimSpace(pickup) == "" || strings.TrimSpace(dropoff) == "" {
		return nil, invalid("pickup_location and dropoff_location are required")
	}

	listing, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.ProviderID != caller.UserID {
		return nil, fmt.Errorf("%w: listing %s belongs to another provider", ErrUnauthorized, listingID)
	}

	now := time.Now()
	d := &models.Delivery{
		ID:              uuid.New().String(),
		ListingID:       listingID,
		PickupLocation:  pickup,
		DropoffLocation: dropoff,
		Status:          models.CourierPending,
		RequestedBy:     caller.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.deliveries.Create(ctx, d); err != nil {
		return nil, err
	}

	assigned, err := s.deliveries.Assign(ctx, d.ID, "")
	switch {
	case err == nil:
		d = assigned
		s.notifyVolunteer(ctx, d, listing.Title)
	case errors.Is(err, repository.ErrNotFound):
		log.Info().Str("delivery_id", d.ID).Msg("No volunteer available, delivery left open")
	default:
		log.Warn().Err(err).Str("delivery_id", d.ID).Msg("Failed to auto-assign delivery")
	}

	return d, nil
}

// AcceptDelivery lets an available volunteer take an open delivery
func (s *DeliveryService) AcceptDelivery(ctx context.Context, caller Identity, deliveryID string) (*models.Delivery, error) {
	v, err := s.volunteer(ctx, caller)
	if err != nil {
		return nil, err
	}
	if v.Status != models.VolunteerAvailable {
		return nil, fmt.Errorf("%w: volunteer is busy", ErrInvalidTransition)
	}

	d, err := s.deliveries.Assign(ctx, deliveryID, v.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: delivery %s is already taken", ErrInvalidTransition, deliveryID)
		case errors.Is(err, repository.ErrNotFound):
			// either the delivery vanished or the volunteer became busy
			if _, getErr := s.deliveries.GetByID(ctx, deliveryID); getErr != nil {
				return nil, translateNotFound(getErr, "delivery", deliveryID)
			}
			return nil, fmt.Errorf("%w: volunteer is busy", ErrInvalidTransition)
		}
		return nil, err
	}

	s.notifyRequester(ctx, d)
	return d, nil
}

// UpdateStatus moves a delivery along its lifecycle. Only the assigned
// volunteer may do so.
func (s *DeliveryService) UpdateStatus(ctx context.Context, caller Identity, deliveryID string, status models.CourierStatus) (*models.Delivery, error) {
	if _, ok := courierSteps[status]; !ok && status != models.CourierCancelled {
		return nil, invalid("unknown delivery status %q", status)
	}

	v, err := s.volunteer(ctx, caller)
	if err != nil {
		return nil, err
	}

	d, err := s.deliveries.Mutate(ctx, deliveryID, func(d *models.Delivery) error {
		if d.VolunteerID == nil || *d.VolunteerID != v.ID {
			return fmt.Errorf("%w: delivery is assigned to another volunteer", ErrUnauthorized)
		}
		if !canAdvance(d.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, d.Status, status)
		}
		d.Status = status
		return nil
	})
	if err != nil {
		return nil, translateNotFound(err, "delivery", deliveryID)
	}

	log.Info().
		Str("delivery_id", d.ID).
		Str("volunteer_id", v.ID).
		Str("status", string(d.Status)).
		Msg("Delivery status updated")

	s.notifyRequester(ctx, d)
	return d, nil
}

// ListForVolunteer returns the deliveries assigned to the caller
func (s *DeliveryService) ListForVolunteer(ctx context.Context, caller Identity) ([]*models.Delivery, error) {
	v, err := s.volunteer(ctx, caller)
	if err != nil {
		return nil, err
	}
	deliveries, err := s.deliveries.ListByVolunteer(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []*models.Delivery{}
	}
	return deliveries, nil
}

// ListOpen returns deliveries still waiting for a volunteer
func (s *DeliveryService) ListOpen(ctx context.Context) ([]*models.Delivery, error) {
	deliveries, err := s.deliveries.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []*models.Delivery{}
	}
	return deliveries, nil
}

func (s *DeliveryService) volunteer(ctx context.Context, caller Identity) (*models.Volunteer, error) {
	v, err := s.volunteers.GetByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, translateNotFound(err, "volunteer for user", caller.UserID)
	}
	return v, nil
}

func (s *DeliveryService) notifyVolunteer(ctx context.Context, d *models.Delivery, title string) {
	runAfterCommit(ctx, "assign_delivery",
		hook{"notify_volunteer", func(ctx context.Context) error {
			v, err := s.volunteers.GetByID(ctx, *d.VolunteerID)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("New delivery: %s from %s to %s", title, d.PickupLocation, d.DropoffLocation)
			_, err = s.notifier.Notify(ctx, v.UserID, models.NotificationDeliveryUpdate, msg, d.ListingID, "")
			return err
		}},
	)
}

func (s *DeliveryService) notifyRequester(ctx context.Context, d *models.Delivery) {
	runAfterCommit(ctx, "delivery_update",
		hook{"notify_requester", func(ctx context.Context) error {
			msg := fmt.Sprintf("Delivery to %s is now %s", d.DropoffLocation, d.Status)
			if d.Status == models.CourierPending {
				msg = fmt.Sprintf("A volunteer accepted the delivery to %s", d.DropoffLocation)
			}
			_, err := s.notifier.Notify(ctx, d.RequestedBy, models.NotificationDeliveryUpdate, msg, d.ListingID, "")
			return err
		}},
	)
}

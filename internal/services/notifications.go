package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campus-food-backend/internal/metrics"
	"campus-food-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const recipientTimeout = 5 * time.Second

// NotificationStore persists in-app notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	DeleteOneByClaimAndType(ctx context.Context, claimID string, t models.NotificationType) (int64, error)
}

// SubscriptionStore persists push device tokens
type SubscriptionStore interface {
	Save(ctx context.Context, sub *models.PushSubscription) error
	ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error)
	Delete(ctx context.Context, userID, deviceToken string) error
}

// RecipientLister resolves broadcast audiences
type RecipientLister interface {
	IDsByRoles(ctx context.Context, roles ...models.Role) ([]string, error)
}

// LiveChannel delivers frames to users with an open websocket
type LiveChannel interface {
	IsOnline(userID string) bool
	SendToUser(userID string, message WSMessage) error
}

// NotificationService persists notifications and fans them out to push and
// live channels. Delivery is best-effort and never affects the stored record.
type NotificationService struct {
	repo        NotificationStore
	subs        SubscriptionStore
	recipients  RecipientLister
	pusher      PushSender
	live        LiveChannel
	pushTimeout time.Duration

	wg    sync.WaitGroup
	async bool
}

// NewNotificationService creates a new notification service. pusher and live
// may be nil when the channel is not configured.
func NewNotificationService(
	repo NotificationStore,
	subs SubscriptionStore,
	recipients RecipientLister,
	pusher PushSender,
	live LiveChannel,
	pushTimeout time.Duration,
) *NotificationService {
	return &NotificationService{
		repo:        repo,
		subs:        subs,
		recipients:  recipients,
		pusher:      pusher,
		live:        live,
		pushTimeout: pushTimeout,
		async:       true,
	}
}

// Notify stores a notification for a user and starts delivery. listingID and
// claimID are optional.
func (s *NotificationService) Notify(ctx context.Context, userID string, t models.NotificationType, message, listingID, claimID string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Message:   message,
		Type:      t,
		ListingID: optional(listingID),
		ClaimID:   optional(claimID),
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store %s notification: %w", t, err)
	}

	s.dispatch(func() { s.deliver(n) })
	return n, nil
}

// RetireByClaimAndType deletes at most one notification of type t for a claim
func (s *NotificationService) RetireByClaimAndType(ctx context.Context, claimID string, t models.NotificationType) error {
	removed, err := s.repo.DeleteOneByClaimAndType(ctx, claimID, t)
	if err != nil {
		return fmt.Errorf("failed to retire %s notification: %w", t, err)
	}
	log.Debug().
		Str("claim_id", claimID).
		Str("type", string(t)).
		Int64("removed", removed).
		Msg("Notification retired")
	return nil
}

// BroadcastNewListing announces a listing to every student and NGO. A failure
// for one recipient does not stop the others; it returns how many were stored.
func (s *NotificationService) BroadcastNewListing(ctx context.Context, listing *models.FoodListing) (int, error) {
	ids, err := s.recipients.IDsByRoles(ctx, models.RoleStudent, models.RoleNGO)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve broadcast recipients: %w", err)
	}

	message := fmt.Sprintf("New food available: %s (%d left)", listing.Title, listing.Quantity)
	base := context.WithoutCancel(ctx)
	stored := 0
	for _, id := range ids {
		if err := s.notifyRecipient(base, id, message, listing.ID); err != nil {
			log.Warn().Err(err).Str("user_id", id).Str("listing_id", listing.ID).Msg("Failed to notify recipient")
			continue
		}
		stored++
	}
	return stored, nil
}

// AnnounceListing broadcasts a new listing in the background
func (s *NotificationService) AnnounceListing(ctx context.Context, listing *models.FoodListing) {
	base := context.WithoutCancel(ctx)
	s.dispatch(func() {
		stored, err := s.BroadcastNewListing(base, listing)
		if err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("broadcast_new_listing").Inc()
			log.Warn().Err(err).Str("listing_id", listing.ID).Msg("Listing broadcast failed")
			return
		}
		log.Debug().Str("listing_id", listing.ID).Int("recipients", stored).Msg("Listing broadcast")
	})
}

func (s *NotificationService) notifyRecipient(ctx context.Context, userID, message, listingID string) error {
	ctx, cancel := context.WithTimeout(ctx, recipientTimeout)
	defer cancel()
	_, err := s.Notify(ctx, userID, models.NotificationNewListing, message, listingID, "")
	return err
}

// List returns a user's inbox
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead marks one notification of the user as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return translateNotFound(err, "notification", id)
	}
	return nil
}

// MarkAllRead marks every notification of the user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// Subscribe registers a device token for push delivery
func (s *NotificationService) Subscribe(ctx context.Context, userID, deviceToken string) (*models.PushSubscription, error) {
	if deviceToken == "" {
		return nil, invalid("device_token is required")
	}
	sub := &models.PushSubscription{
		ID:          uuid.New().String(),
		UserID:      userID,
		DeviceToken: deviceToken,
		CreatedAt:   time.Now(),
	}
	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe removes a device token
func (s *NotificationService) Unsubscribe(ctx context.Context, userID, deviceToken string) error {
	return s.subs.Delete(ctx, userID, deviceToken)
}

// Wait blocks until in-flight deliveries finish
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) dispatch(fn func()) {
	if !s.async {
		fn()
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *NotificationService) deliver(n *models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("notification_id", n.ID).Msg("Notification delivery panicked")
		}
	}()

	if s.live != nil && s.live.IsOnline(n.UserID) {
		if err := s.live.SendToUser(n.UserID, WSMessage{Type: "notification", Data: n}); err != nil {
			log.Debug().Err(err).Str("user_id", n.UserID).Msg("Live notification not delivered")
		}
	}

	if s.pusher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
	defer cancel()

	subs, err := s.subs.ListByUser(ctx, n.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", n.UserID).Msg("Failed to load push subscriptions")
		return
	}

	payload := PushPayload{
		Title: "Campus Food",
		Body:  n.Message,
		Data:  map[string]string{"type": string(n.Type), "notification_id": n.ID},
	}
	for _, sub := range subs {
		err := s.pusher.Send(ctx, sub.DeviceToken, payload)
		switch {
		case err == nil:
			metrics.PushDeliveriesTotal.WithLabelValues("sent").Inc()
		case errors.Is(err, ErrPushGone):
			metrics.PushDeliveriesTotal.WithLabelValues("gone").Inc()
			if err := s.subs.Delete(ctx, sub.UserID, sub.DeviceToken); err != nil {
				log.Warn().Err(err).Str("user_id", sub.UserID).Msg("Failed to remove stale push subscription")
			}
		default:
			metrics.PushDeliveriesTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("user_id", sub.UserID).Msg("Push delivery failed")
		}
	}
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

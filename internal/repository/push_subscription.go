package repository

import (
	"context"
	"fmt"

	"campus-food-backend/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushSubscriptionRepository handles database operations for device tokens
type PushSubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewPushSubscriptionRepository creates a new push subscription repository
func NewPushSubscriptionRepository(db *pgxpool.Pool) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{db: db}
}

// Save registers a device token for a user. A token that moves to another
// user is reassigned.
func (r *PushSubscriptionRepository) Save(ctx context.Context, sub *models.PushSubscription) error {
	query := `
		INSERT INTO push_subscriptions (id, user_id, device_token, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_token) DO UPDATE SET user_id = EXCLUDED.user_id
	`
	_, err := r.db.Exec(ctx, query, sub.ID, sub.UserID, sub.DeviceToken, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

// ListByUser retrieves every device token of a user
func (r *PushSubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	var subs []*models.PushSubscription
	query := `
		SELECT id, user_id, device_token, created_at
		FROM push_subscriptions
		WHERE user_id = $1
	`
	if err := pgxscan.Select(ctx, r.db, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	return subs, nil
}

// Delete removes a user's device token
func (r *PushSubscriptionRepository) Delete(ctx context.Context, userID, deviceToken string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND device_token = $2`, userID, deviceToken)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

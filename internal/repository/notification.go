package repository

import (
	"context"
	"fmt"

	"campus-food-backend/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository handles database operations for in-app notifications
type NotificationRepository struct {
	db *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, message, type, listing_id, claim_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		n.ID, n.UserID, n.Message, n.Type, n.ListingID, n.ClaimID, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	var notifications []*models.Notification
	query := `
		SELECT id, user_id, message, type, listing_id, claim_id, read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read = false)
		ORDER BY created_at DESC
	`
	if err := pgxscan.Select(ctx, r.db, &notifications, query, userID, unreadOnly); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks one of the user's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification of a user as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET read = true WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// DeleteOneByClaimAndType removes at most one notification of the given type
// attached to a claim and reports how many rows were removed
func (r *NotificationRepository) DeleteOneByClaimAndType(ctx context.Context, claimID string, t models.NotificationType) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE id = (
			SELECT id FROM notifications
			WHERE claim_id = $1 AND type = $2
			ORDER BY created_at
			LIMIT 1
		)
	`
	result, err := r.db.Exec(ctx, query, claimID, t)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notification: %w", err)
	}
	return result.RowsAffected(), nil
}

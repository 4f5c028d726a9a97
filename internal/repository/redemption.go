package repository

import (
	"context"
	"fmt"

	"campus-food-backend/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RedemptionRepository handles database operations for cashback redemptions
type RedemptionRepository struct {
	db *pgxpool.Pool
}

// NewRedemptionRepository creates a new redemption repository
func NewRedemptionRepository(db *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// CreateTx inserts a redemption inside the caller's transaction
func (r *RedemptionRepository) CreateTx(ctx context.Context, tx pgx.Tx, red *models.Redemption) error {
	query := `
		INSERT INTO redemptions (id, user_id, points, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Exec(ctx, query, red.ID, red.UserID, red.Points, red.Amount, red.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create redemption: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's redemptions, newest first
func (r *RedemptionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Redemption, error) {
	var redemptions []*models.Redemption
	query := `
		SELECT id, user_id, points, amount, created_at
		FROM redemptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	if err := pgxscan.Select(ctx, r.db, &redemptions, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	return redemptions, nil
}

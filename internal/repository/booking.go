package repository

import (
	"context"
	"fmt"

	"campus-food-backend/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository handles database operations for NGO bookings
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateTx inserts a booking inside the caller's transaction
func (r *BookingRepository) CreateTx(ctx context.Context, tx pgx.Tx, b *models.Booking) error {
	query := `
		INSERT INTO bookings (id, ngo_id, listing_id, claim_id, quantity, booked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query, b.ID, b.NGOID, b.ListingID, b.ClaimID, b.Quantity, b.BookedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// ListByNGO retrieves bookings made by an NGO, newest first
func (r *BookingRepository) ListByNGO(ctx context.Context, ngoID string) ([]*models.Booking, error) {
	var bookings []*models.Booking
	query := `
		SELECT id, ngo_id, listing_id, claim_id, quantity, booked_at
		FROM bookings
		WHERE ngo_id = $1
		ORDER BY booked_at DESC
	`
	if err := pgxscan.Select(ctx, r.db, &bookings, query, ngoID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

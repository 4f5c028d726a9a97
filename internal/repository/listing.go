package repository

import (
	"context"
	"fmt"
	"time"

	"campus-food-backend/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listingColumns = `id, title, source, quantity, food_type, storage_condition, prepared_at,
	expires_at, image_url, status, provider_id, points_per_unit, created_at`

const claimColumns = `id, listing_id, claimant_id, claimant_role, quantity, otp, delivery_requested,
	delivery_address, delivery_status, pickup_status, claimed_at`

// Mutation changes a locked listing aggregate in memory. Claims appended to
// the listing are inserted, existing claims are written back, and a returned
// booking is inserted in the same transaction. Returning an error aborts the
// transaction without writing anything.
type Mutation func(listing *models.FoodListing) (*models.Booking, error)

// ListingRepository handles database operations for food listings and their claims
type ListingRepository struct {
	db       *pgxpool.Pool
	bookings *BookingRepository
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *pgxpool.Pool, bookings *BookingRepository) *ListingRepository {
	return &ListingRepository{db: db, bookings: bookings}
}

// Create creates a new listing
func (r *ListingRepository) Create(ctx context.Context, l *models.FoodListing) error {
	query := `
		INSERT INTO food_listings (id, title, source, quantity, food_type, storage_condition,
			prepared_at, expires_at, image_url, status, provider_id, points_per_unit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		l.ID, l.Title, l.Source, l.Quantity, l.FoodType, l.StorageCondition,
		l.PreparedAt, l.ExpiresAt, l.ImageURL, l.Status, l.ProviderID, l.PointsPerUnit, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// GetByID retrieves a listing with its claims
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.FoodListing, error) {
	return r.load(ctx, r.db, id, false)
}

// ListAvailable retrieves listings that can still be claimed, soonest expiry first
func (r *ListingRepository) ListAvailable(ctx context.Context, now time.Time) ([]*models.FoodListing, error) {
	var listings []*models.FoodListing
	query := `SELECT ` + listingColumns + `
		FROM food_listings
		WHERE status = $1 AND quantity > 0 AND expires_at > $2
		ORDER BY expires_at ASC`
	if err := pgxscan.Select(ctx, r.db, &listings, query, models.ListingAvailable, now); err != nil {
		return nil, fmt.Errorf("failed to list available listings: %w", err)
	}
	return listings, nil
}

// ListByProvider retrieves every listing posted by a provider
func (r *ListingRepository) ListByProvider(ctx context.Context, providerID string) ([]*models.FoodListing, error) {
	var listings []*models.FoodListing
	query := `SELECT ` + listingColumns + `
		FROM food_listings
		WHERE provider_id = $1
		ORDER BY created_at DESC`
	if err := pgxscan.Select(ctx, r.db, &listings, query, providerID); err != nil {
		return nil, fmt.Errorf("failed to list provider listings: %w", err)
	}
	return listings, nil
}

// ListClaimsByClaimant retrieves the claims a user has made across listings
func (r *ListingRepository) ListClaimsByClaimant(ctx context.Context, claimantID string) ([]*models.Claim, error) {
	var claims []*models.Claim
	query := `SELECT ` + claimColumns + `
		FROM claims
		WHERE claimant_id = $1
		ORDER BY claimed_at DESC`
	if err := pgxscan.Select(ctx, r.db, &claims, query, claimantID); err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, nil
}

// Mutate locks a listing row, applies fn and writes the aggregate back.
// Concurrent mutations of the same listing are serialized by the row lock.
func (r *ListingRepository) Mutate(ctx context.Context, id string, fn Mutation) (*models.FoodListing, error) {
	var listing *models.FoodListing
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		l, err := r.load(ctx, tx, id, true)
		if err != nil {
			return err
		}

		known := make(map[string]bool, len(l.Claims))
		for _, c := range l.Claims {
			known[c.ID] = true
		}

		booking, err := fn(l)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE food_listings SET quantity = $1, status = $2 WHERE id = $3`,
			l.Quantity, l.Status, l.ID,
		); err != nil {
			return fmt.Errorf("failed to update listing: %w", err)
		}

		for position, c := range l.Claims {
			if known[c.ID] {
				err = updateClaim(ctx, tx, c)
			} else {
				err = insertClaim(ctx, tx, c, position)
			}
			if err != nil {
				return err
			}
		}

		if booking != nil {
			if err := r.bookings.CreateTx(ctx, tx, booking); err != nil {
				return err
			}
		}

		listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// MarkExpired flags available listings whose expiry has passed
func (r *ListingRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE food_listings SET status = $1 WHERE status = $2 AND expires_at <= $3`,
		models.ListingExpired, models.ListingAvailable, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired listings: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpiredBefore removes listings that expired before cutoff. Rows locked
// by an in-flight mutation are skipped and picked up by a later sweep.
func (r *ListingRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM food_listings
		WHERE id IN (
			SELECT id FROM food_listings
			WHERE expires_at < $1
			FOR UPDATE SKIP LOCKED
		)
	`
	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired listings: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *ListingRepository) load(ctx context.Context, q pgxscan.Querier, id string, lock bool) (*models.FoodListing, error) {
	query := `SELECT ` + listingColumns + ` FROM food_listings WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var listing models.FoodListing
	if err := pgxscan.Get(ctx, q, &listing, query, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	claimsQuery := `SELECT ` + claimColumns + ` FROM claims WHERE listing_id = $1 ORDER BY position`
	if err := pgxscan.Select(ctx, q, &listing.Claims, claimsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get claims: %w", err)
	}
	return &listing, nil
}

func insertClaim(ctx context.Context, tx pgx.Tx, c *models.Claim, position int) error {
	query := `
		INSERT INTO claims (id, listing_id, position, claimant_id, claimant_role, quantity, otp,
			delivery_requested, delivery_address, delivery_status, pickup_status, claimed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := tx.Exec(ctx, query,
		c.ID, c.ListingID, position, c.ClaimantID, c.ClaimantRole, c.Quantity, c.OTP,
		c.DeliveryRequested, c.DeliveryAddress, c.DeliveryStatus, c.PickupStatus, c.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// updateClaim writes back the mutable claim fields. OTP and quantity never change.
func updateClaim(ctx context.Context, tx pgx.Tx, c *models.Claim) error {
	_, err := tx.Exec(ctx,
		`UPDATE claims SET delivery_status = $1, pickup_status = $2 WHERE id = $3`,
		c.DeliveryStatus, c.PickupStatus, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}
	return nil
}

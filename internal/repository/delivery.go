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

const deliveryColumns = `id, listing_id, pickup_location, dropoff_location, volunteer_id,
	status, requested_by, created_at, updated_at`

// DeliveryMutation changes a locked delivery in memory
type DeliveryMutation func(d *models.Delivery) error

// DeliveryRepository handles database operations for volunteer deliveries
type DeliveryRepository struct {
	db *pgxpool.Pool
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Create creates a new delivery
func (r *DeliveryRepository) Create(ctx context.Context, d *models.Delivery) error {
	query := `
		INSERT INTO deliveries (id, listing_id, pickup_location, dropoff_location, volunteer_id,
			status, requested_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		d.ID, d.ListingID, d.PickupLocation, d.DropoffLocation, d.VolunteerID,
		d.Status, d.RequestedBy, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

// GetByID retrieves a delivery by ID
func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*models.Delivery, error) {
	return r.get(ctx, r.db, id, false)
}

// ListByVolunteer retrieves deliveries assigned to a volunteer
func (r *DeliveryRepository) ListByVolunteer(ctx context.Context, volunteerID string) ([]*models.Delivery, error) {
	var deliveries []*models.Delivery
	query := `SELECT ` + deliveryColumns + `
		FROM deliveries WHERE volunteer_id = $1 ORDER BY created_at DESC`
	if err := pgxscan.Select(ctx, r.db, &deliveries, query, volunteerID); err != nil {
		return nil, fmt.Errorf("failed to list volunteer deliveries: %w", err)
	}
	return deliveries, nil
}

// ListOpen retrieves pending deliveries that have no volunteer yet
func (r *DeliveryRepository) ListOpen(ctx context.Context) ([]*models.Delivery, error) {
	var deliveries []*models.Delivery
	query := `SELECT ` + deliveryColumns + `
		FROM deliveries WHERE volunteer_id IS NULL AND status = $1 ORDER BY created_at`
	if err := pgxscan.Select(ctx, r.db, &deliveries, query, models.CourierPending); err != nil {
		return nil, fmt.Errorf("failed to list open deliveries: %w", err)
	}
	return deliveries, nil
}

// Assign gives an unassigned pending delivery to a volunteer and marks the
// volunteer busy. An empty volunteerID picks the longest-registered available
// volunteer. It returns ErrNotFound when no volunteer can take the delivery.
func (r *DeliveryRepository) Assign(ctx context.Context, deliveryID, volunteerID string) (*models.Delivery, error) {
	var delivery *models.Delivery
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		d, err := r.get(ctx, tx, deliveryID, true)
		if err != nil {
			return err
		}
		if d.VolunteerID != nil || d.Status != models.CourierPending {
			return ErrConflict
		}

		query := `
			SELECT id FROM volunteers
			WHERE status = $1 AND ($2 = '' OR id::text = $2)
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		`
		var chosen string
		if err := tx.QueryRow(ctx, query, models.VolunteerAvailable, volunteerID).Scan(&chosen); err != nil {
			return notFound(err)
		}

		if _, err := tx.Exec(ctx, `UPDATE volunteers SET status = $1 WHERE id = $2`,
			models.VolunteerBusy, chosen); err != nil {
			return fmt.Errorf("failed to mark volunteer busy: %w", err)
		}

		d.VolunteerID = &chosen
		d.UpdatedAt = time.Now()
		if _, err := tx.Exec(ctx, `UPDATE deliveries SET volunteer_id = $1, updated_at = $2 WHERE id = $3`,
			chosen, d.UpdatedAt, d.ID); err != nil {
			return fmt.Errorf("failed to assign delivery: %w", err)
		}

		delivery = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// Mutate locks a delivery, applies fn and writes the status back. When the
// delivery reaches a terminal status its volunteer becomes available again.
func (r *DeliveryRepository) Mutate(ctx context.Context, id string, fn DeliveryMutation) (*models.Delivery, error) {
	var delivery *models.Delivery
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		d, err := r.get(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}

		d.UpdatedAt = time.Now()
		if _, err := tx.Exec(ctx, `UPDATE deliveries SET status = $1, updated_at = $2 WHERE id = $3`,
			d.Status, d.UpdatedAt, d.ID); err != nil {
			return fmt.Errorf("failed to update delivery: %w", err)
		}

		if d.Status.Terminal() && d.VolunteerID != nil {
			if _, err := tx.Exec(ctx, `UPDATE volunteers SET status = $1 WHERE id = $2`,
				models.VolunteerAvailable, *d.VolunteerID); err != nil {
				return fmt.Errorf("failed to release volunteer: %w", err)
			}
		}

		delivery = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

func (r *DeliveryRepository) get(ctx context.Context, q pgxscan.Querier, id string, lock bool) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var d models.Delivery
	if err := pgxscan.Get(ctx, q, &d, query, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return &d, nil
}

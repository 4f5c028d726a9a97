package repository

import (
	"context"
	"fmt"

	"campus-food-backend/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const volunteerColumns = `id, user_id, name, phone, status, created_at`

// VolunteerRepository handles database operations for volunteer profiles
type VolunteerRepository struct {
	db *pgxpool.Pool
}

// NewVolunteerRepository creates a new volunteer repository
func NewVolunteerRepository(db *pgxpool.Pool) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

// Create creates a volunteer profile. A user can hold only one.
func (r *VolunteerRepository) Create(ctx context.Context, v *models.Volunteer) error {
	query := `
		INSERT INTO volunteers (id, user_id, name, phone, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, v.ID, v.UserID, v.Name, v.Phone, v.Status, v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create volunteer: %w", err)
	}
	return nil
}

// GetByUserID retrieves the volunteer profile linked to a user
func (r *VolunteerRepository) GetByUserID(ctx context.Context, userID string) (*models.Volunteer, error) {
	var v models.Volunteer
	query := `SELECT ` + volunteerColumns + ` FROM volunteers WHERE user_id = $1`
	if err := pgxscan.Get(ctx, r.db, &v, query, userID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get volunteer: %w", err)
	}
	return &v, nil
}

// GetByID retrieves a volunteer profile by ID
func (r *VolunteerRepository) GetByID(ctx context.Context, id string) (*models.Volunteer, error) {
	var v models.Volunteer
	query := `SELECT ` + volunteerColumns + ` FROM volunteers WHERE id = $1`
	if err := pgxscan.Get(ctx, r.db, &v, query, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get volunteer: %w", err)
	}
	return &v, nil
}

package repository

import (
	"context"
	"fmt"

	"campus-food-backend/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, role, points, level, title, badges, weekly_progress,
	weekly_goal, weekly_reward, cashback_points, created_at`

// UserMutation changes a locked user row in memory. A returned redemption is
// inserted in the same transaction.
type UserMutation func(user *models.User) (*models.Redemption, error)

// UserRepository handles database operations for users
type UserRepository struct {
	db          *pgxpool.Pool
	redemptions *RedemptionRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool, redemptions *RedemptionRepository) *UserRepository {
	return &UserRepository{db: db, redemptions: redemptions}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, role, points, level, title, badges, weekly_progress,
			weekly_goal, weekly_reward, cashback_points, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Role, user.Points, user.Level, user.Title, user.Badges,
		user.WeeklyProgress, user.WeeklyGoal, user.WeeklyReward, user.CashbackPoints, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, r.db, id, false)
}

// IDsByRoles retrieves the ids of every user holding one of the roles
func (r *UserRepository) IDsByRoles(ctx context.Context, roles ...models.Role) ([]string, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	var ids []string
	query := `SELECT id FROM users WHERE role = ANY($1) ORDER BY created_at`
	if err := pgxscan.Select(ctx, r.db, &ids, query, names); err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return ids, nil
}

// Mutate locks a user row, applies fn and writes the reward fields back
func (r *UserRepository) Mutate(ctx context.Context, id string, fn UserMutation) (*models.User, error) {
	var user *models.User
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		u, err := r.get(ctx, tx, id, true)
		if err != nil {
			return err
		}

		redemption, err := fn(u)
		if err != nil {
			return err
		}

		query := `
			UPDATE users
			SET points = $1, level = $2, title = $3, badges = $4, weekly_progress = $5,
				cashback_points = $6
			WHERE id = $7
		`
		if _, err := tx.Exec(ctx, query,
			u.Points, u.Level, u.Title, u.Badges, u.WeeklyProgress, u.CashbackPoints, u.ID,
		); err != nil {
			return fmt.Errorf("failed to update user rewards: %w", err)
		}

		if redemption != nil {
			if err := r.redemptions.CreateTx(ctx, tx, redemption); err != nil {
				return err
			}
		}

		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ResetWeeklyProgress starts a new weekly challenge for every user
func (r *UserRepository) ResetWeeklyProgress(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `UPDATE users SET weekly_progress = 0 WHERE weekly_progress > 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset weekly progress: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *UserRepository) get(ctx context.Context, q pgxscan.Querier, id string, lock bool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var user models.User
	if err := pgxscan.Get(ctx, q, &user, query, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"campus-food-backend/internal/config"
	"campus-food-backend/internal/metrics"
	"campus-food-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RewardsPolicy holds the point economy settings
type RewardsPolicy = config.RewardsConfig

const pointsPerLevel = 100

var levelTitles = []struct {
	minLevel int
	title    string
}{
	{10, "Campus Hero"},
	{5, "Sustainability Champion"},
	{3, "Waste Warrior"},
	{1, "Food Saver"},
}

var badgeThresholds = []struct {
	points int
	badge  string
}{
	{1, "First Rescue"},
	{100, "Century Saver"},
	{500, "Eco Hero"},
	{1000, "Zero Waste Legend"},
}

func levelForPoints(points int) int {
	return points/pointsPerLevel + 1
}

func titleForLevel(level int) string {
	for _, band := range levelTitles {
		if level >= band.minLevel {
			return band.title
		}
	}
	return levelTitles[len(levelTitles)-1].title
}

func hasBadge(badges []string, badge string) bool {
	for _, b := range badges {
		if b == badge {
			return true
		}
	}
	return false
}

// RedemptionLister reads a user's cashback history
type RedemptionLister interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Redemption, error)
}

// RedemptionResult is the outcome of a cashback redemption
type RedemptionResult struct {
	Balance    int                `json:"balance"`
	Credited   float64            `json:"credited"`
	Redemption *models.Redemption `json:"redemption"`
}

// RewardService applies point, level and cashback changes to users
type RewardService struct {
	users       UserStore
	redemptions RedemptionLister
	policy      RewardsPolicy
	now         func() time.Time
}

// NewRewardService creates a new reward service
func NewRewardService(users UserStore, redemptions RedemptionLister, policy RewardsPolicy) *RewardService {
	return &RewardService{
		users:       users,
		redemptions: redemptions,
		policy:      policy,
		now:         time.Now,
	}
}

// PointsPerUnit returns the listing's rate, or the configured default when the
// listing does not set one
func (s *RewardService) PointsPerUnit(listing *models.FoodListing) int {
	if listing.PointsPerUnit > 0 {
		return listing.PointsPerUnit
	}
	return s.policy.DefaultPointsPerUnit
}

// AwardForConfirmedPickup credits a claimant for a collected claim. Points and
// cashback grow by the same amount; weekly progress advances by one up to the
// goal, and reaching the goal pays the weekly reward into cashback once.
func (s *RewardService) AwardForConfirmedPickup(ctx context.Context, userID string, pointsPerUnit, quantity int) (*models.User, error) {
	if pointsPerUnit < 0 || quantity <= 0 {
		return nil, invalid("cannot award %d points per unit for %d units", pointsPerUnit, quantity)
	}
	earned := pointsPerUnit * quantity

	user, err := s.users.Mutate(ctx, userID, func(u *models.User) (*models.Redemption, error) {
		u.Points += earned
		u.CashbackPoints += earned

		if u.WeeklyProgress < u.WeeklyGoal {
			u.WeeklyProgress++
			if u.WeeklyProgress == u.WeeklyGoal {
				u.CashbackPoints += u.WeeklyReward
			}
		}

		u.Level = levelForPoints(u.Points)
		u.Title = titleForLevel(u.Level)
		for _, t := range badgeThresholds {
			if u.Points >= t.points && !hasBadge(u.Badges, t.badge) {
				u.Badges = append(u.Badges, t.badge)
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, translateNotFound(err, "user", userID)
	}

	log.Info().
		Str("user_id", userID).
		Int("earned", earned).
		Int("points", user.Points).
		Int("level", user.Level).
		Msg("Rewards awarded")
	return user, nil
}

// RedeemCashback converts cashback points into currency for a student
func (s *RewardService) RedeemCashback(ctx context.Context, caller Identity, amount int) (*RedemptionResult, error) {
	if caller.Role != models.RoleStudent {
		return nil, ErrRoleNotEligible
	}
	if amount < s.policy.MinRedemption {
		return nil, fmt.Errorf("%w: minimum is %d points", ErrBelowMinimum, s.policy.MinRedemption)
	}

	credited := float64(amount) / float64(s.policy.PointsPerCurrency)
	var redemption *models.Redemption

	user, err := s.users.Mutate(ctx, caller.UserID, func(u *models.User) (*models.Redemption, error) {
		if u.Role != models.RoleStudent {
			return nil, ErrRoleNotEligible
		}
		if amount > u.CashbackPoints {
			return nil, fmt.Errorf("%w: balance is %d points", ErrInsufficientBalance, u.CashbackPoints)
		}

		u.CashbackPoints -= amount
		redemption = &models.Redemption{
			ID:        uuid.New().String(),
			UserID:    u.ID,
			Points:    amount,
			Amount:    credited,
			CreatedAt: s.now(),
		}
		return redemption, nil
	})
	if err != nil {
		return nil, translateNotFound(err, "user", caller.UserID)
	}

	metrics.RedemptionsTotal.Inc()
	return &RedemptionResult{
		Balance:    user.CashbackPoints,
		Credited:   credited,
		Redemption: redemption,
	}, nil
}

// Profile returns the reward state of a user
func (s *RewardService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateNotFound(err, "user", userID)
	}
	return user, nil
}

// Redemptions returns a user's cashback history
func (s *RewardService) Redemptions(ctx context.Context, userID string) ([]*models.Redemption, error) {
	redemptions, err := s.redemptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	if redemptions == nil {
		redemptions = []*models.Redemption{}
	}
	return redemptions, nil
}


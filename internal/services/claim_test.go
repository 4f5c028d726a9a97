package services

import (
	"context"
	"errors"
	"testing"

	"campus-food-backend/internal/config"
	"campus-food-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testPolicy = config.RewardsConfig{
	DefaultPointsPerUnit: 10,
	MinRedemption:        50,
	PointsPerCurrency:    10,
	WeeklyGoal:           5,
	WeeklyReward:         50,
}

type claimFixture struct {
	svc      *ClaimService
	listings *memListings
	users    *memUsers
	notes    *memNotifications
}

func newTestUser(id Identity) *models.User {
	return &models.User{
		ID:           id.UserID,
		Name:         id.UserID,
		Role:         id.Role,
		Level:        1,
		Title:        titleForLevel(1),
		Badges:       []string{},
		WeeklyGoal:   testPolicy.WeeklyGoal,
		WeeklyReward: testPolicy.WeeklyReward,
	}
}

func newClaimFixture(limiter AttemptLimiter, listings ...*models.FoodListing) *claimFixture {
	store, repo := newTestStore(listings...)
	users := newMemUsers(
		newTestUser(student),
		newTestUser(Identity{UserID: "student-2", Role: models.RoleStudent}),
		newTestUser(ngo),
		newTestUser(canteen),
	)
	notes := newMemNotifications()
	notifier := newSyncNotifier(notes, users, nil)
	rewards := NewRewardService(users, users, testPolicy)

	return &claimFixture{
		svc:      NewClaimService(store, rewards, notifier, repo, limiter),
		listings: repo,
		users:    users,
		notes:    notes,
	}
}

func TestClaimLifecycle_EndToEnd(t *testing.T) {
	ctx := context.Background()
	listing := newTestListing("l1", 5)
	f := newClaimFixture(nil, listing)

	claim, err := f.svc.CreateClaim(ctx, student, "l1", 2, DeliveryRequest{})
	require.NoError(t, err)
	assert.Equal(t, 5, f.listings.quantity("l1"))
	assert.Equal(t, models.PickupPending, claim.PickupStatus)
	assert.Equal(t, 1, f.notes.count(claim.ID, models.NotificationClaimOTP))
	assert.Equal(t, 1, f.notes.count(claim.ID, models.NotificationConfirmPickup))

	otp := f.notes.forUser(student.UserID, models.NotificationClaimOTP)
	require.Len(t, otp, 1)
	assert.Contains(t, otp[0].Message, testOTP)

	_, err = f.svc.ConfirmPickup(ctx, canteen, "l1", claim.ID, testOTP)
	require.NoError(t, err)
	assert.Equal(t, 3, f.listings.quantity("l1"))
	assert.Equal(t, 20, f.users.user(student.UserID).Points)
	assert.Equal(t, 20, f.users.user(student.UserID).CashbackPoints)
	assert.Equal(t, 1, f.users.user(student.UserID).WeeklyProgress)
	assert.Equal(t, 0, f.notes.count(claim.ID, models.NotificationConfirmPickup))
	assert.Equal(t, 1, f.notes.count(claim.ID, models.NotificationPickupConfirmed))

	other := Identity{UserID: "student-2", Role: models.RoleStudent}
	second, err := f.svc.CreateClaim(ctx, other, "l1", 3, DeliveryRequest{})
	require.NoError(t, err)

	_, err = f.svc.ConfirmPickup(ctx, canteen, "l1", second.ID, "999999")
	assert.ErrorIs(t, err, ErrInvalidOTP)
	assert.Equal(t, 3, f.listings.quantity("l1"))
	assert.Equal(t, 0, f.users.user(other.UserID).Points)
}

func TestRespondToDelivery_RetiresRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted", func(t *testing.T) {
		f := newClaimFixture(nil, newTestListing("l1", 5))

		claim, err := f.svc.CreateClaim(ctx, student, "l1", 1, DeliveryRequest{Requested: true, Address: "Hostel B"})
		require.NoError(t, err)
		assert.Equal(t, 1, f.notes.count(claim.ID, models.NotificationDeliveryRequest))
		assert.Equal(t, 0, f.notes.count(claim.ID, models.NotificationConfirmPickup))

		updated, err := f.svc.RespondToDelivery(ctx, canteen, "l1", claim.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.DeliveryAccepted, updated.DeliveryStatus)

		assert.Equal(t, 0, f.notes.count(claim.ID, models.NotificationDeliveryRequest))
		assert.Len(t, f.notes.forUser(canteen.UserID, models.NotificationConfirmPickup), 1)
		assert.Len(t, f.notes.forUser(student.UserID, models.NotificationDeliveryAccepted), 1)
	})

	t.Run("rejected", func(t *testing.T) {
		f := newClaimFixture(nil, newTestListing("l1", 5))

		claim, err := f.svc.CreateClaim(ctx, student, "l1", 1, DeliveryRequest{Requested: true, Address: "Hostel B"})
		require.NoError(t, err)

		_, err = f.svc.RespondToDelivery(ctx, canteen, "l1", claim.ID, false)
		require.NoError(t, err)

		assert.Equal(t, 0, f.notes.count(claim.ID, models.NotificationDeliveryRequest))
		assert.Empty(t, f.notes.forUser(canteen.UserID, models.NotificationConfirmPickup))
		assert.Len(t, f.notes.forUser(student.UserID, models.NotificationDeliveryRejected), 1)

		_, err = f.svc.RespondToDelivery(ctx, canteen, "l1", claim.ID, true)
		assert.ErrorIs(t, err, ErrClaimNotFound)
	})
}

func TestCancelPickup_NotifiesAndRetires(t *testing.T) {
	ctx := context.Background()
	f := newClaimFixture(nil, newTestListing("l1", 5))

	claim, err := f.svc.CreateBooking(ctx, ngo, "l1", 4, DeliveryRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.listings.quantity("l1"))

	_, err = f.svc.CancelPickup(ctx, canteen, "l1", claim.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, f.listings.quantity("l1"))
	assert.Equal(t, 0, f.notes.count(claim.ID, models.NotificationConfirmPickup))
	assert.Len(t, f.notes.forUser(ngo.UserID, models.NotificationPickupCancelled), 1)

	_, err = f.svc.CancelPickup(ctx, canteen, "l1", claim.ID)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestTerminalClaim_DeliveryRequestIsClosed(t *testing.T) {
	ctx := context.Background()
	delivery := DeliveryRequest{Requested: true, Address: "Hostel B"}

	finish := map[string]func(f *claimFixture, claimID string) error{
		"cancelled": func(f *claimFixture, claimID string) error {
			_, err := f.svc.CancelPickup(ctx, canteen, "l1", claimID)
			return err
		},
		"confirmed": func(f *claimFixture, claimID string) error {
			_, err := f.svc.ConfirmPickup(ctx, canteen, "l1", claimID, testOTP)
			return err
		},
	}

	for name, fn := range finish {
		t.Run(name, func(t *testing.T) {
			f := newClaimFixture(nil, newTestListing("l1", 5))

			claim, err := f.svc.CreateClaim(ctx, student, "l1", 1, delivery)
			require.NoError(t, err)
			require.Equal(t, 1, f.notes.count(claim.ID, models.NotificationDeliveryRequest))

			require.NoError(t, fn(f, claim.ID))
			assert.Equal(t, 0, f.notes.count(claim.ID, models.NotificationDeliveryRequest))

			_, err = f.svc.RespondToDelivery(ctx, canteen, "l1", claim.ID, true)
			assert.ErrorIs(t, err, ErrClaimNotFound)
			assert.Equal(t, 0, f.notes.count(claim.ID, models.NotificationConfirmPickup))
			assert.Empty(t, f.notes.forUser(student.UserID, models.NotificationDeliveryAccepted))
		})
	}
}

func TestClaimService_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newClaimFixture(nil, newTestListing("l1", 5))

	claim, err := f.svc.CreateClaim(ctx, student, "l1", 1, DeliveryRequest{})
	require.NoError(t, err)

	otherCanteen := Identity{UserID: "canteen-2", Role: models.RoleCanteenOrganizer}

	_, err = f.svc.ConfirmPickup(ctx, student, "l1", claim.ID, testOTP)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.CancelPickup(ctx, otherCanteen, "l1", claim.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.PendingClaims(ctx, otherCanteen, "l1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.CreateBooking(ctx, student, "l1", 1, DeliveryRequest{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = f.svc.BookingsForNGO(ctx, student)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 5, f.listings.quantity("l1"))
}

func TestPendingClaims_HidesOTP(t *testing.T) {
	ctx := context.Background()
	f := newClaimFixture(nil, newTestListing("l1", 10))

	first, err := f.svc.CreateClaim(ctx, student, "l1", 1, DeliveryRequest{})
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, ngo, "l1", 2, DeliveryRequest{})
	require.NoError(t, err)
	_, err = f.svc.ConfirmPickup(ctx, canteen, "l1", first.ID, testOTP)
	require.NoError(t, err)

	pending, err := f.svc.PendingClaims(ctx, canteen, "l1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ngo.UserID, pending[0].ClaimantID)
	assert.Empty(t, pending[0].OTP)

	bookings, err := f.svc.BookingsForNGO(ctx, ngo)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, 2, bookings[0].Quantity)

	mine, err := f.svc.ClaimsByClaimant(ctx, ngo)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, testOTP, mine[0].OTP)
}

func TestConfirmPickup_AttemptLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("blocked", func(t *testing.T) {
		limiter := new(mockLimiter)
		f := newClaimFixture(limiter, newTestListing("l1", 5))

		claim, err := f.svc.CreateClaim(ctx, student, "l1", 1, DeliveryRequest{})
		require.NoError(t, err)

		limiter.On("Allow", mock.Anything, claim.ID).Return(false, nil)

		_, err = f.svc.ConfirmPickup(ctx, canteen, "l1", claim.ID, testOTP)
		assert.ErrorIs(t, err, ErrTooManyAttempts)
		assert.Equal(t, KindRateLimited, KindOf(err))
		assert.Equal(t, 5, f.listings.quantity("l1"))
		limiter.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
	})

	t.Run("resets after success", func(t *testing.T) {
		limiter := new(mockLimiter)
		f := newClaimFixture(limiter, newTestListing("l1", 5))

		claim, err := f.svc.CreateClaim(ctx, student, "l1", 1, DeliveryRequest{})
		require.NoError(t, err)

		limiter.On("Allow", mock.Anything, claim.ID).Return(true, nil)
		limiter.On("Reset", mock.Anything, claim.ID).Return(nil)

		_, err = f.svc.ConfirmPickup(ctx, canteen, "l1", claim.ID, testOTP)
		require.NoError(t, err)
		limiter.AssertExpectations(t)
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		limiter := new(mockLimiter)
		f := newClaimFixture(limiter, newTestListing("l1", 5))

		claim, err := f.svc.CreateClaim(ctx, student, "l1", 1, DeliveryRequest{})
		require.NoError(t, err)

		limiter.On("Allow", mock.Anything, claim.ID).Return(false, errors.New("connection refused"))
		limiter.On("Reset", mock.Anything, claim.ID).Return(errors.New("connection refused"))

		_, err = f.svc.ConfirmPickup(ctx, canteen, "l1", claim.ID, testOTP)
		require.NoError(t, err)
		assert.Equal(t, 4, f.listings.quantity("l1"))
	})
}

func TestCreateClaim_SideEffectFailureDoesNotUndoClaim(t *testing.T) {
	ctx := context.Background()
	f := newClaimFixture(nil, newTestListing("l1", 5))
	f.notes.fail[ngo.UserID] = true

	claim, err := f.svc.CreateBooking(ctx, ngo, "l1", 2, DeliveryRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, f.listings.quantity("l1"))
	assert.Equal(t, 0, f.notes.count(claim.ID, models.NotificationClaimOTP))
	assert.Equal(t, 1, f.notes.count(claim.ID, models.NotificationConfirmPickup))
}

func TestConfirmPickup_DefaultPointsPerUnit(t *testing.T) {
	ctx := context.Background()
	listing := newTestListing("l1", 5)
	listing.PointsPerUnit = 0
	f := newClaimFixture(nil, listing)

	claim, err := f.svc.CreateClaim(ctx, student, "l1", 3, DeliveryRequest{})
	require.NoError(t, err)
	_, err = f.svc.ConfirmPickup(ctx, canteen, "l1", claim.ID, testOTP)
	require.NoError(t, err)

	assert.Equal(t, 30, f.users.user(student.UserID).Points)
}

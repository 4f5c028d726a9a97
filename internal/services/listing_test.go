package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"campus-food-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockImages struct {
	mock.Mock
}

func (m *mockImages) Upload(ctx context.Context, ownerID, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, ownerID, contentType, data)
	return args.String(0), args.Error(1)
}

type listingFixture struct {
	svc    *ListingService
	images *mockImages
	repo   *memListings
	notes  *memNotifications
}

func newListingFixture(listings ...*models.FoodListing) *listingFixture {
	store, repo := newTestStore(listings...)
	notes := newMemNotifications()
	users := newMemUsers(newTestUser(student), newTestUser(ngo), newTestUser(canteen))
	images := new(mockImages)
	return &listingFixture{
		svc:    NewListingService(store, images, newSyncNotifier(notes, users, nil)),
		images: images,
		repo:   repo,
		notes:  notes,
	}
}

func validNewListing() NewListing {
	now := time.Now()
	return NewListing{
		Title:         "Paneer wraps",
		Source:        "North canteen",
		Quantity:      12,
		FoodType:      "veg",
		PreparedAt:    now.Add(-30 * time.Minute),
		ExpiresAt:     now.Add(2 * time.Hour),
		PointsPerUnit: 15,
	}
}

func TestCreateListing(t *testing.T) {
	ctx := context.Background()
	f := newListingFixture()
	image := &Image{ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}

	f.images.On("Upload", mock.Anything, canteen.UserID, "image/jpeg", image.Data).
		Return("https://cdn.test/canteen-1/a.jpg", nil)

	listing, err := f.svc.CreateListing(ctx, canteen, validNewListing(), image)
	require.NoError(t, err)
	assert.Equal(t, models.ListingAvailable, listing.Status)
	assert.Equal(t, "https://cdn.test/canteen-1/a.jpg", listing.ImageURL)
	assert.Equal(t, 12, f.repo.quantity(listing.ID))

	assert.Len(t, f.notes.forUser(student.UserID, models.NotificationNewListing), 1)
	assert.Len(t, f.notes.forUser(ngo.UserID, models.NotificationNewListing), 1)
	assert.Empty(t, f.notes.forUser(canteen.UserID, models.NotificationNewListing))

	mine, err := f.svc.ListMine(ctx, canteen)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	f.images.AssertExpectations(t)
}

func TestCreateListing_UploadFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	f := newListingFixture()
	f.images.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: bucket unavailable", ErrExternal))

	_, err := f.svc.CreateListing(ctx, canteen, validNewListing(), &Image{ContentType: "image/png", Data: []byte{1}})
	assert.ErrorIs(t, err, ErrExternal)

	mine, err := f.svc.ListMine(ctx, canteen)
	require.NoError(t, err)
	assert.Empty(t, mine)
	assert.Empty(t, f.notes.forUser(student.UserID, models.NotificationNewListing))
}

func TestCreateListing_Rejections(t *testing.T) {
	image := &Image{ContentType: "image/png", Data: []byte{1}}
	tests := []struct {
		name   string
		caller Identity
		edit   func(*NewListing)
		image  *Image
		want   error
	}{
		{"student", student, func(*NewListing) {}, image, ErrUnauthorized},
		{"ngo", ngo, func(*NewListing) {}, image, ErrUnauthorized},
		{"no title", canteen, func(in *NewListing) { in.Title = " " }, image, ErrValidation},
		{"zero quantity", canteen, func(in *NewListing) { in.Quantity = 0 }, image, ErrValidation},
		{"already expired", canteen, func(in *NewListing) { in.ExpiresAt = time.Now().Add(-time.Minute) }, image, ErrValidation},
		{"prepared after expiry", canteen, func(in *NewListing) { in.PreparedAt = in.ExpiresAt.Add(time.Hour) }, image, ErrValidation},
		{"negative points", canteen, func(in *NewListing) { in.PointsPerUnit = -1 }, image, ErrValidation},
		{"missing image", canteen, func(*NewListing) {}, nil, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newListingFixture()
			in := validNewListing()
			tt.edit(&in)

			_, err := f.svc.CreateListing(context.Background(), tt.caller, in, tt.image)
			assert.ErrorIs(t, err, tt.want)
			f.images.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestListingService_GetRedactsOtherOTPs(t *testing.T) {
	ctx := context.Background()
	f := newListingFixture(newTestListing("l1", 5))
	_, claim, err := f.svc.store.Reserve(ctx, "l1", student, 1, DeliveryRequest{})
	require.NoError(t, err)

	own, err := f.svc.Get(ctx, student, "l1")
	require.NoError(t, err)
	assert.Equal(t, testOTP, own.FindClaim(claim.ID).OTP)

	other, err := f.svc.Get(ctx, ngo, "l1")
	require.NoError(t, err)
	assert.Empty(t, other.FindClaim(claim.ID).OTP)

	available, err := f.svc.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

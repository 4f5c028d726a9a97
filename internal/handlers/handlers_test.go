package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"campus-food-backend/internal/models"
	"campus-food-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) Nearby(ctx context.Context, lat, lng float64, radius string) ([]models.Place, error) {
	args := m.Called(ctx, lat, lng, radius)
	places, _ := args.Get(0).([]models.Place)
	return places, args.Error(1)
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", fmt.Errorf("listing x: %w", services.ErrNotFound), http.StatusNotFound, "listing x: not found"},
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", services.ErrUnauthorized, http.StatusForbidden, "not allowed"},
		{"terminal", services.ErrAlreadyConfirmed, http.StatusConflict, "pickup already confirmed or cancelled"},
		{"otp", services.ErrInvalidOTP, http.StatusBadRequest, "invalid otp"},
		{"rate limited", services.ErrTooManyAttempts, http.StatusTooManyRequests, "too many attempts"},
		{"external", services.ErrExternal, http.StatusBadGateway, "external service failure"},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.message, body.Error)
		})
	}
}

func TestPlacesHandler_Nearby(t *testing.T) {
	finder := new(mockFinder)
	finder.On("Nearby", mock.Anything, 12.5, 77.25, "any").
		Return([]models.Place{{ID: "p1", Name: "Food Bank", Address: "Main St"}}, nil)
	finder.On("Nearby", mock.Anything, 1.0, 1.0, "").
		Return(nil, fmt.Errorf("%w: upstream down", services.ErrExternal))

	handler := NewPlacesHandler(finder)

	rec := httptest.NewRecorder()
	handler.Nearby(rec, httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=12.5&lng=77.25&radius=any", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var places []models.Place
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&places))
	assert.Equal(t, "Food Bank", places[0].Name)

	rec = httptest.NewRecorder()
	handler.Nearby(rec, httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=1&lng=1", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = httptest.NewRecorder()
	handler.Nearby(rec, httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=north&lng=1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	finder.AssertExpectations(t)
}

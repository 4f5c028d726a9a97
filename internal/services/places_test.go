package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campus-food-backend/internal/config"
	"campus-food-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlaces(t *testing.T, handler http.HandlerFunc) *PlacesClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewPlacesClient(config.PlacesConfig{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		DefaultRadius: 5000,
		RateLimit:     100,
		RateBurst:     10,
		Timeout:       time.Second,
	}, nil)
}

func TestNearby(t *testing.T) {
	var gotRadius, gotKey string
	client := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, placesSearchPath, r.URL.Path)
		gotRadius = r.URL.Query().Get("radius")
		gotKey = r.URL.Query().Get("key")
		fmt.Fprint(w, `{"status":"OK","results":[
			{"place_id":"p1","name":"City Food Bank","vicinity":"12 Main St"},
			{"place_id":"p2","name":"Hope Shelter","vicinity":"4 Elm Rd"}]}`)
	})

	places, err := client.Nearby(context.Background(), 12.97, 77.59, "any")
	require.NoError(t, err)
	assert.Equal(t, "5000", gotRadius)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, []models.Place{
		{ID: "p1", Name: "City Food Bank", Address: "12 Main St"},
		{ID: "p2", Name: "Hope Shelter", Address: "4 Elm Rd"},
	}, places)

	_, err = client.Nearby(context.Background(), 12.97, 77.59, "1500")
	require.NoError(t, err)
	assert.Equal(t, "1500", gotRadius)
}

func TestNearby_ZeroResults(t *testing.T) {
	client := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})

	places, err := client.Nearby(context.Background(), 0, 0, "")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestNearby_Failures(t *testing.T) {
	t.Run("provider error status", func(t *testing.T) {
		client := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)
		})
		_, err := client.Nearby(context.Background(), 1, 1, "any")
		assert.ErrorIs(t, err, ErrExternal)
	})

	t.Run("http error", func(t *testing.T) {
		client := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.Nearby(context.Background(), 1, 1, "any")
		assert.ErrorIs(t, err, ErrExternal)
		assert.Equal(t, KindExternal, KindOf(err))
	})

	t.Run("invalid input", func(t *testing.T) {
		client := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("provider must not be called")
		})
		_, err := client.Nearby(context.Background(), 91, 0, "any")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = client.Nearby(context.Background(), 0, 0, "far")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = client.Nearby(context.Background(), 0, 0, "-5")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

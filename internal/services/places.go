package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campus-food-backend/internal/config"
	"campus-food-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	placesSearchPath = "/maps/api/place/nearbysearch/json"
	placesKeyword    = "ngo food bank"
	anyRadius        = "any"
)

// PlaceFinder looks up organizations near a point
type PlaceFinder interface {
	Nearby(ctx context.Context, lat, lng float64, radius string) ([]models.Place, error)
}

type placesResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string `json:"place_id"`
		Name     string `json:"name"`
		Vicinity string `json:"vicinity"`
	} `json:"results"`
}

// PlacesClient queries a Places nearby-search API with client side rate
// limiting and an optional Redis result cache
type PlacesClient struct {
	baseURL       string
	apiKey        string
	defaultRadius int
	cacheTTL      time.Duration
	httpClient    *http.Client
	rateLimiter   *rate.Limiter
	cache         *redis.Client
}

// NewPlacesClient creates a new places client. cache may be nil.
func NewPlacesClient(cfg config.PlacesConfig, cache *redis.Client) *PlacesClient {
	return &PlacesClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		defaultRadius: cfg.DefaultRadius,
		cacheTTL:      cfg.CacheTTL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		rateLimiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		cache:         cache,
	}
}

// Nearby returns places around (lat, lng). radius is meters or "any".
func (c *PlacesClient) Nearby(ctx context.Context, lat, lng float64, radius string) ([]models.Place, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, invalid("coordinates out of range")
	}
	meters, err := c.radius(radius)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("places:%.4f:%.4f:%d", lat, lng, meters)
	if places, ok := c.cached(ctx, key); ok {
		return places, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: places rate limiter: %v", ErrExternal, err)
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", strconv.Itoa(meters))
	params.Set("keyword", placesKeyword)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+placesSearchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: places request failed: %v", ErrExternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: places returned status %d", ErrExternal, resp.StatusCode)
	}

	var body placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode places response: %v", ErrExternal, err)
	}
	if body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("%w: places status %s: %s", ErrExternal, body.Status, body.ErrorMessage)
	}

	places := make([]models.Place, 0, len(body.Results))
	for _, r := range body.Results {
		places = append(places, models.Place{ID: r.PlaceID, Name: r.Name, Address: r.Vicinity})
	}

	c.store(ctx, key, places)
	return places, nil
}

func (c *PlacesClient) radius(radius string) (int, error) {
	if radius == "" || strings.EqualFold(radius, anyRadius) {
		return c.defaultRadius, nil
	}
	meters, err := strconv.Atoi(radius)
	if err != nil || meters <= 0 {
		return 0, invalid("radius must be a positive number of meters or %q", anyRadius)
	}
	return meters, nil
}

func (c *PlacesClient) cached(ctx context.Context, key string) ([]models.Place, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("Places cache read failed")
		}
		return nil, false
	}

	var places []models.Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, false
	}
	return places, true
}

func (c *PlacesClient) store(ctx context.Context, key string, places []models.Place) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(places)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Places cache write failed")
	}
}

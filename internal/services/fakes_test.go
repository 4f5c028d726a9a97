package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus-food-backend/internal/models"
	"campus-food-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

func cloneListing(l *models.FoodListing) *models.FoodListing {
	c := *l
	c.Claims = make([]*models.Claim, len(l.Claims))
	for i, claim := range l.Claims {
		cc := *claim
		c.Claims[i] = &cc
	}
	return &c
}

// memListings mimics the row-locked aggregate update of ListingRepository
type memListings struct {
	mu       sync.Mutex
	listings map[string]*models.FoodListing
	bookings []*models.Booking
}

func newMemListings(listings ...*models.FoodListing) *memListings {
	m := &memListings{listings: map[string]*models.FoodListing{}}
	for _, l := range listings {
		m.listings[l.ID] = cloneListing(l)
	}
	return m
}

func (m *memListings) Create(_ context.Context, l *models.FoodListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = cloneListing(l)
	return nil
}

func (m *memListings) GetByID(_ context.Context, id string) (*models.FoodListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneListing(l), nil
}

func (m *memListings) ListAvailable(_ context.Context, now time.Time) ([]*models.FoodListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FoodListing
	for _, l := range m.listings {
		if l.Status == models.ListingAvailable && l.Quantity > 0 && l.ExpiresAt.After(now) {
			out = append(out, cloneListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (m *memListings) ListByProvider(_ context.Context, providerID string) ([]*models.FoodListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FoodListing
	for _, l := range m.listings {
		if l.ProviderID == providerID {
			out = append(out, cloneListing(l))
		}
	}
	return out, nil
}

func (m *memListings) ListClaimsByClaimant(_ context.Context, claimantID string) ([]*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Claim
	for _, l := range m.listings {
		for _, c := range l.Claims {
			if c.ClaimantID == claimantID {
				cc := *c
				out = append(out, &cc)
			}
		}
	}
	return out, nil
}

func (m *memListings) Mutate(_ context.Context, id string, fn repository.Mutation) (*models.FoodListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	working := cloneListing(l)
	booking, err := fn(working)
	if err != nil {
		return nil, err
	}
	m.listings[id] = cloneListing(working)
	if booking != nil {
		m.bookings = append(m.bookings, booking)
	}
	return working, nil
}

func (m *memListings) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.listings {
		if l.Status == models.ListingAvailable && !l.ExpiresAt.After(now) {
			l.Status = models.ListingExpired
			n++
		}
	}
	return n, nil
}

func (m *memListings) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, l := range m.listings {
		if l.ExpiresAt.Before(cutoff) {
			delete(m.listings, id)
			n++
		}
	}
	return n, nil
}

func (m *memListings) ListByNGO(_ context.Context, ngoID string) ([]*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Booking
	for _, b := range m.bookings {
		if b.NGOID == ngoID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memListings) quantity(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listings[id].Quantity
}

// memUsers mimics UserRepository
type memUsers struct {
	mu          sync.Mutex
	users       map[string]*models.User
	redemptions []*models.Redemption
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{users: map[string]*models.User{}}
	for _, u := range users {
		cu := *u
		m.users[u.ID] = &cu
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cu := *u
	m.users[u.ID] = &cu
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cu := *u
	return &cu, nil
}

func (m *memUsers) IDsByRoles(_ context.Context, roles ...models.Role) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, u := range m.users {
		for _, r := range roles {
			if u.Role == r {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memUsers) Mutate(_ context.Context, id string, fn repository.UserMutation) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	working := *u
	working.Badges = append([]string(nil), u.Badges...)
	redemption, err := fn(&working)
	if err != nil {
		return nil, err
	}
	stored := working
	m.users[id] = &stored
	if redemption != nil {
		m.redemptions = append(m.redemptions, redemption)
	}
	return &working, nil
}

func (m *memUsers) ListByUser(_ context.Context, userID string) ([]*models.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Redemption
	for _, r := range m.redemptions {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memUsers) user(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cu := *m.users[id]
	return &cu
}

// memNotifications mimics NotificationRepository and PushSubscriptionRepository
type memNotifications struct {
	mu    sync.Mutex
	items []*models.Notification
	subs  []*models.PushSubscription
	fail  map[string]bool
}

func newMemNotifications() *memNotifications {
	return &memNotifications{fail: map[string]bool{}}
}

func (m *memNotifications) Create(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[n.UserID] {
		return assertError("store unavailable")
	}
	cn := *n
	m.items = append(m.items, &cn)
	return nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (m *memNotifications) DeleteOneByClaimAndType(_ context.Context, claimID string, t models.NotificationType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.items {
		if n.ClaimID != nil && *n.ClaimID == claimID && n.Type == t {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memNotifications) Save(_ context.Context, sub *models.PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.DeviceToken == sub.DeviceToken {
			s.UserID = sub.UserID
			return nil
		}
	}
	cs := *sub
	m.subs = append(m.subs, &cs)
	return nil
}

func (m *memNotifications) ListSubscriptions(userID string) []*models.PushSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PushSubscription
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

// count returns how many notifications of type t reference claimID
func (m *memNotifications) count(claimID string, t models.NotificationType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.items {
		if item.ClaimID != nil && *item.ClaimID == claimID && item.Type == t {
			n++
		}
	}
	return n
}

// forUser returns the notifications of type t held by userID
func (m *memNotifications) forUser(userID string, t models.NotificationType) []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, item := range m.items {
		if item.UserID == userID && item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// memSubscriptions adapts memNotifications to SubscriptionStore
type memSubscriptions struct {
	*memNotifications
}

func (s memSubscriptions) ListByUser(_ context.Context, userID string) ([]*models.PushSubscription, error) {
	return s.ListSubscriptions(userID), nil
}

func (s memSubscriptions) Delete(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.UserID == userID && sub.DeviceToken == token {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return nil
		}
	}
	return nil
}

type assertError string

func (e assertError) Error() string { return string(e) }

// mockPusher records push attempts
type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) Send(ctx context.Context, deviceToken string, msg PushPayload) error {
	args := m.Called(ctx, deviceToken, msg)
	return args.Error(0)
}

// mockLimiter stubs OTP attempt accounting
type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockLimiter) Reset(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newSyncNotifier(store *memNotifications, users RecipientLister, pusher PushSender) *NotificationService {
	s := NewNotificationService(store, memSubscriptions{store}, users, pusher, nil, time.Second)
	s.async = false
	return s
}

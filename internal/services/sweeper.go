package services

import (
	"context"
	"sync"
	"time"

	"campus-food-backend/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ExpiryStore is the listing housekeeping surface
type ExpiryStore interface {
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// WeeklyResetter starts a new weekly challenge
type WeeklyResetter interface {
	ResetWeeklyProgress(ctx context.Context) (int64, error)
}

// Sweeper periodically expires and removes stale listings and resets weekly
// challenge progress when the ISO week rolls over
type Sweeper struct {
	listings ExpiryStore
	users    WeeklyResetter
	interval time.Duration
	grace    time.Duration
	now      func() time.Time

	lastWeek       int
	wg             sync.WaitGroup
	shutdownSignal chan struct{}
	stopOnce       sync.Once
}

// NewSweeper creates a sweeper. users may be nil to skip weekly resets.
func NewSweeper(listings ExpiryStore, users WeeklyResetter, interval, grace time.Duration) *Sweeper {
	return &Sweeper{
		listings:       listings,
		users:          users,
		interval:       interval,
		grace:          grace,
		now:            time.Now,
		shutdownSignal: make(chan struct{}),
	}
}

// Start launches the sweep loop. Stop waits for it even when called before
// the loop goroutine has been scheduled.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// run sweeps on every tick until ctx is cancelled or Stop is called
func (s *Sweeper) run(ctx context.Context) {
	_, s.lastWeek = s.now().ISOWeek()
	log.Info().
		Dur("interval", s.interval).
		Dur("grace", s.grace).
		Msg("Listing sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.shutdownSignal:
			log.Info().Msg("Listing sweeper stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Listing sweeper context cancelled")
			return
		}
	}
}

// Stop signals the loop to return and waits for the current sweep to finish
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdownSignal)
	})
	s.wg.Wait()
}

// Sweep runs one housekeeping pass. Failures are logged and retried on the
// next tick.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	expired, err := s.listings.MarkExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Failed to mark expired listings")
	} else if expired > 0 {
		metrics.ListingsSweptTotal.WithLabelValues("expired").Add(float64(expired))
		log.Info().Int64("count", expired).Msg("Listings expired")
	}

	deleted, err := s.listings.DeleteExpiredBefore(ctx, now.Add(-s.grace))
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete expired listings")
	} else if deleted > 0 {
		metrics.ListingsSweptTotal.WithLabelValues("deleted").Add(float64(deleted))
		log.Info().Int64("count", deleted).Msg("Expired listings deleted")
	}

	if s.users == nil {
		return
	}
	if _, week := now.ISOWeek(); week != s.lastWeek {
		reset, err := s.users.ResetWeeklyProgress(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to reset weekly progress")
			return
		}
		s.lastWeek = week
		log.Info().Int64("users", reset).Int("week", week).Msg("Weekly challenge reset")
	}
}

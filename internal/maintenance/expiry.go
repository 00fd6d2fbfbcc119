// Package maintenance runs periodic housekeeping over the subscription
// fleet.
package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ExpiryStore defines the interface for the expiry sweep data access.
type ExpiryStore interface {
	ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

// ExpiryScheduler periodically marks active subscriptions whose period
// has lapsed as expired. Access evaluation never mutates status; this
// sweeper is the external driver for the active-to-expired transition.
type ExpiryScheduler struct {
	store   ExpiryStore
	cron    *cron.Cron
	logger  zerolog.Logger
	mu      sync.Mutex
	running bool
}

// NewExpiryScheduler creates a new expiry sweep scheduler.
func NewExpiryScheduler(store ExpiryStore, logger zerolog.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		store:  store,
		cron:   cron.New(),
		logger: logger.With().Str("component", "expiry").Logger(),
	}
}

// Start begins the hourly expiry sweep.
func (s *ExpiryScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("expiry scheduler already running")
	}

	_, err := s.cron.AddFunc("@hourly", s.runSweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Msg("expiry scheduler started (hourly)")
	return nil
}

// Stop stops the expiry scheduler gracefully.
func (s *ExpiryScheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.running = false
	s.logger.Info().Msg("stopping expiry scheduler")
	return s.cron.Stop()
}

// runSweep executes the expiry sweep.
func (s *ExpiryScheduler) runSweep() {
	ctx := context.Background()

	expired, err := s.store.ExpireLapsedSubscriptions(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}

	if expired > 0 {
		s.logger.Info().Int64("expired", expired).Msg("expiry sweep completed")
	}
}

// RunNow triggers an immediate sweep (useful for testing and the CLI).
func (s *ExpiryScheduler) RunNow() {
	s.runSweep()
}

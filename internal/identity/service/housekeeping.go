package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/passport/internal/identity/store"
)

// HousekeepingService periodically removes dead rows so login_sessions,
// passkey_challenges and api_key_grants don't grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Retention is how long revoked/expired rows stay around before being
	// physically removed (useful for incident forensics).
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the sweeper. Interval defaults to 1 hour,
// retention to 30 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut it
// down gracefully.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval, "retention", s.Retention)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep performs the deletions. Each table is independent; a failure in one
// doesn't stop the others.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now()
	cutoff := now.Add(-s.Retention)

	if n, err := s.Store.Sessions().DeleteExpiredOlderThan(ctx, cutoff); err != nil {
		s.Logger.Error("failed to sweep login sessions", "error", err)
	} else if n > 0 {
		s.Logger.Debug("swept login sessions", "deleted", n)
	}

	// Challenges are minutes-lived; no retention needed.
	if n, err := s.Store.PasskeyChallenges().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to sweep passkey challenges", "error", err)
	} else if n > 0 {
		s.Logger.Debug("swept passkey challenges", "deleted", n)
	}

	if n, err := s.Store.ApiKeyGrants().DeleteExpiredOlderThan(ctx, cutoff); err != nil {
		s.Logger.Error("failed to sweep api key grants", "error", err)
	} else if n > 0 {
		s.Logger.Debug("swept api key grants", "deleted", n)
	}
}

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/store"
)

// DefaultHousekeepingInterval is used when no positive interval is configured.
const DefaultHousekeepingInterval = 15 * time.Minute

// sweepTimeout bounds a single sweep so a stuck store cannot stall Stop.
const sweepTimeout = 30 * time.Second

// HousekeepingService periodically removes expired one-time codes: pending
// signups that were never verified and reset codes left on user records.
// Expiry is always enforced at validation time; this only reclaims space.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then every Interval until Stop.
func (s *HousekeepingService) Start() {
	go s.loop()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop ends the worker, waiting for a sweep in progress. Start must have been
// called.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.sweepWithTimeout()
		select {
		case <-ticker.C:
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweepWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	s.Cleanup(ctx)
}

// Cleanup runs one sweep and returns the number of records touched. The two
// purges are independent; an error in one is logged and the other still runs.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	now = now.UTC()

	purges := []struct {
		what string
		run  func(context.Context, time.Time) (int64, error)
	}{
		{"pending signups", s.Store.PendingSignups().DeleteExpired},
		{"user otps", s.Store.Users().ClearExpiredOTPs},
	}

	var total int64
	for _, p := range purges {
		n, err := p.run(ctx, now)
		if err != nil {
			s.Logger.Error("housekeeping purge failed", "what", p.what, "err", err)
			continue
		}
		total += n
	}

	if total > 0 {
		s.Logger.Info("housekeeping purged expired codes", "records", total)
	}
	return total
}

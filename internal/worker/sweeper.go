package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// HoldExpirer releases bookings whose hold window lapsed. The
// reservation service implements it.
type HoldExpirer interface {
	ExpireHolds(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically expires lapsed holds so abandoned checkouts give
// their rooms back. Expiry is idempotent: a sweep racing a concurrent
// confirmation simply loses and moves on.
type Sweeper struct {
	expirer  HoldExpirer
	interval time.Duration
	logger   *zerolog.Logger
}

func NewSweeper(expirer HoldExpirer, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep loop until ctx is cancelled. One pass runs
// immediately so restarts do not leave stale holds sitting a full
// interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("Hold expiry sweeper started")

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Hold expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	released, err := s.expirer.ExpireHolds(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Hold expiry sweep failed")
		return
	}
	if released > 0 {
		s.logger.Info().Int("released", released).Msg("Expired holds released")
	}
}

package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const reaperBatchLimit = 100

type holdExpirer interface {
	ExpireDueHolds(ctx context.Context, limit int) (int, error)
}

// Reaper periodically expires overdue holds so reserved funds return
// to available balance even when the orchestrator never calls back.
type Reaper struct {
	expirer  holdExpirer
	interval time.Duration
	log      zerolog.Logger
}

// NewReaper creates a Reaper. Start must be called to begin ticking.
func NewReaper(expirer holdExpirer, interval time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{expirer: expirer, interval: interval, log: log}
}

// Start runs the reaper loop until the context is cancelled. It ticks
// once immediately so holds that expired while the process was down are
// released without waiting a full interval.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reaper stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	expired, err := r.expirer.ExpireDueHolds(ctx, reaperBatchLimit)
	if err != nil {
		r.log.Error().Err(err).Msg("reaper sweep failed")
		return
	}
	if expired > 0 {
		r.log.Info().Int("expired", expired).Msg("expired overdue holds")
	}
}

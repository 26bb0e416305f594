package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Purger is implemented by stores that can drop old terminal records.
type Purger interface {
	PurgeTerminal(olderThan time.Duration) int
}

// Reaper periodically purges terminal jobs past their retention window.
type Reaper struct {
	store     Purger
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
}

// NewReaper creates a reaper that keeps terminal jobs for retention and
// sweeps every interval.
func NewReaper(store Purger, retention, interval time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{
		store:     store,
		retention: retention,
		interval:  interval,
		log:       log.With().Str("component", "reaper").Logger(),
	}
}

// Run sweeps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("retention", r.retention).Dur("interval", r.interval).Msg("reaper started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reaper stopped")
			return
		case <-ticker.C:
			r.store.PurgeTerminal(r.retention)
		}
	}
}

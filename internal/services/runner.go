package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// AutoRunner generates one post every Interval until its context ends.
type AutoRunner struct {
	Feed     *FeedService
	Interval time.Duration
}

// Run blocks until ctx is cancelled. Tick failures are logged; the next
// interval tries again.
func (r *AutoRunner) Run(ctx context.Context) {
	if r.Interval <= 0 {
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	log.Info().Dur("interval", r.Interval).Msg("auto generation started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("auto generation stopped")
			return
		case <-t.C:
			if _, err := r.Feed.GenerateBatch(ctx, 1); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("scheduled tick failed")
			}
		}
	}
}

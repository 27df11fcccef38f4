// Package jobs holds the background work of the service.
package jobs

import (
	"context"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/calendar"
	"github.com/anonto42/songoftheday/backend/internal/metrics"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/rs/zerolog/log"
)

// ResetSweep deactivates every song dated before today.
type ResetSweep struct {
	songs    repositories.DailySongRepository
	calendar *calendar.Calendar
	timeout  time.Duration
}

// NewResetSweep creates a ResetSweep. A zero timeout leaves runs unbounded.
func NewResetSweep(songs repositories.DailySongRepository, cal *calendar.Calendar, timeout time.Duration) *ResetSweep {
	return &ResetSweep{songs: songs, calendar: cal, timeout: timeout}
}

// Run performs one sweep and returns how many songs it deactivated.
// A failed run is not retried; the next run converges the ledger.
func (s *ResetSweep) Run(ctx context.Context) (int64, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	today := s.calendar.Today()
	n, err := s.songs.DeactivateBefore(ctx, today)
	if err != nil {
		metrics.ResetSweepRuns.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("today", today).Msg("reset sweep failed")
		return 0, err
	}

	metrics.ResetSweepRuns.WithLabelValues("success").Inc()
	metrics.ResetSweepDeactivated.Add(float64(n))
	metrics.ResetSweepLastSuccess.Set(float64(s.calendar.Now().Unix()))
	log.Info().Str("today", today).Int64("deactivated", n).Msg("daily songs reset")
	return n, nil
}

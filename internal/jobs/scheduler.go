package jobs

import (
	"context"
	"fmt"

	"github.com/anonto42/songoftheday/backend/internal/calendar"
	"github.com/anonto42/songoftheday/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the reset sweep in-process on a cron schedule.
//
// Every process replica with a Scheduler runs its own copy of the job; the
// sweep tolerates that, but multi-instance deployments should trigger
// cmd/sweep externally instead.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler schedules sweep at schedule (standard five-field cron) in the calendar's location.
func NewScheduler(schedule string, sweep *ResetSweep, cal *calendar.Calendar) (*Scheduler, error) {
	cronLog := logger.CronLogger{Logger: log.Logger}
	c := cron.New(
		cron.WithLocation(cal.Location()),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	if _, err := c.AddFunc(schedule, func() {
		_, _ = sweep.Run(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("invalid reset schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		log.Info().Time("next_run", e.Next).Msg("reset sweep scheduled")
	}
}

// Stop stops the scheduler and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

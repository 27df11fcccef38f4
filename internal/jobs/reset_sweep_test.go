package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/songoftheday/backend/internal/calendar"
	"github.com/anonto42/songoftheday/backend/internal/metrics"
	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCalendar(day string) *calendar.Calendar {
	t, _ := time.ParseInLocation(models.DateLayout, day, time.UTC)
	return calendar.NewWithClock(time.UTC, func() time.Time { return t.Add(4 * time.Hour) })
}

func TestResetSweepIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewPostgresDailySongRepository(db)
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	stale := testutil.CreateSong(t, db, a.ID, "2024-05-01", true)
	today := testutil.CreateSong(t, db, b.ID, "2024-05-02", true)

	sweep := NewResetSweep(repo, fixedCalendar("2024-05-02"), time.Second)
	before := promtestutil.ToFloat64(metrics.ResetSweepRuns.WithLabelValues("success"))

	n, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	snapshot := func() map[uint]bool {
		var songs []models.DailySong
		require.NoError(t, db.Find(&songs).Error)
		out := map[uint]bool{}
		for _, s := range songs {
			out[s.ID] = s.IsCurrent
		}
		return out
	}
	first := snapshot()

	n, err = sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, first, snapshot())

	assert.False(t, first[stale.ID])
	assert.True(t, first[today.ID])
	assert.Equal(t, before+2, promtestutil.ToFloat64(metrics.ResetSweepRuns.WithLabelValues("success")))
}

type failingSongs struct {
	repositories.DailySongRepository
}

func (failingSongs) DeactivateBefore(context.Context, string) (int64, error) {
	return 0, errors.New("storage unavailable")
}

func TestResetSweepReportsFailure(t *testing.T) {
	sweep := NewResetSweep(failingSongs{}, fixedCalendar("2024-05-02"), 0)
	before := promtestutil.ToFloat64(metrics.ResetSweepRuns.WithLabelValues("error"))

	_, err := sweep.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, before+1, promtestutil.ToFloat64(metrics.ResetSweepRuns.WithLabelValues("error")))
}

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	sweep := NewResetSweep(failingSongs{}, fixedCalendar("2024-05-02"), 0)

	_, err := NewScheduler("not a cron line", sweep, fixedCalendar("2024-05-02"))
	assert.Error(t, err)

	s, err := NewScheduler("0 4 * * *", sweep, fixedCalendar("2024-05-02"))
	require.NoError(t, err)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

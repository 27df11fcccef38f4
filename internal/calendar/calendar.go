// Package calendar computes the calendar days the daily-song ledger is keyed on.
package calendar

import (
	"time"

	"github.com/anonto42/songoftheday/backend/internal/models"
)

// Calendar resolves "today" in a fixed location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Calendar for loc using the wall clock. A nil loc means time.Local.
func New(loc *time.Location) *Calendar {
	return NewWithClock(loc, time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, now: now}
}

// Location returns the calendar's location.
func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant in the calendar's location.
func (c *Calendar) Now() time.Time { return c.now().In(c.loc) }

// Today returns the current day formatted as models.DateLayout.
func (c *Calendar) Today() string { return Day(c.Now()) }

// Day formats t as a ledger day in t's own location.
func Day(t time.Time) string { return t.Format(models.DateLayout) }

// AddDays shifts a ledger day by n days. It returns day unchanged if it cannot be parsed.
func AddDays(day string, n int) string {
	t, err := time.Parse(models.DateLayout, day)
	if err != nil {
		return day
	}
	return Day(t.AddDate(0, 0, n))
}

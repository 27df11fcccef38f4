package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTodayUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2024-03-01 20:30 UTC is already 2024-03-02 in Tokyo.
	instant := time.Date(2024, 3, 1, 20, 30, 0, 0, time.UTC)

	utc := NewWithClock(time.UTC, func() time.Time { return instant })
	jst := NewWithClock(tokyo, func() time.Time { return instant })

	assert.Equal(t, "2024-03-01", utc.Today())
	assert.Equal(t, "2024-03-02", jst.Today())
}

func TestAddDays(t *testing.T) {
	assert.Equal(t, "2024-03-01", AddDays("2024-02-29", 1))
	assert.Equal(t, "2023-12-31", AddDays("2024-01-01", -1))
	assert.Equal(t, "garbage", AddDays("garbage", 1))
}

func TestNilLocationFallsBackToLocal(t *testing.T) {
	c := New(nil)
	assert.Equal(t, time.Local, c.Location())
}

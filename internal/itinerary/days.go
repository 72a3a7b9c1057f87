// Package itinerary is the day-planning core: it partitions a trip's date
// range into numbered days, keeps a contiguous 1..k ordering of items within
// each day, and derives totals from the item set.
//
// Nothing in this package performs I/O. Persistence and optimistic sync live
// in the planner package.
package itinerary

import (
	"fmt"
	"time"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Day is one bucket of a trip's date range.
type Day struct {
	Number int
	Date   time.Time
}

const secondsPerDay = 24 * 60 * 60

// civil truncates t to midnight UTC of its calendar date so that day
// arithmetic is never affected by wall-clock offsets or DST.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayCount returns the number of days in start..end inclusive.
// Returns domain.ErrValidation if end is before start.
func DayCount(start, end time.Time) (int, error) {
	s, e := civil(start), civil(end)
	if e.Before(s) {
		return 0, fmt.Errorf("%w: end_date %s is before start_date %s",
			domain.ErrValidation, e.Format(time.DateOnly), s.Format(time.DateOnly))
	}
	// Unix seconds rather than time.Duration, which saturates after ~292 years.
	return int((e.Unix()-s.Unix())/secondsPerDay) + 1, nil
}

// Days returns the ordered day buckets 1..DayCount(start, end).
// It is recomputed on every call; callers must not cache the result across
// changes to the trip's dates.
func Days(start, end time.Time) ([]Day, error) {
	n, err := DayCount(start, end)
	if err != nil {
		return nil, err
	}
	days := make([]Day, n)
	for i := range days {
		days[i] = Day{Number: i + 1, Date: DateOf(start, i+1)}
	}
	return days, nil
}

// DateOf returns the calendar date of day number n of a trip starting on start.
func DateOf(start time.Time, n int) time.Time {
	return civil(start).AddDate(0, 0, n-1)
}

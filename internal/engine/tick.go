// Season calendar: day numbers map onto UTC calendar dates.
package engine

import "time"

// Calendar defaults.
const (
	DefaultSeasonLength = 40
	earliestStartHour   = 5
	latestStartHour     = 21
)

// DefaultSeasonStart is the date of day 1.
var DefaultSeasonStart = time.Date(2026, time.February, 11, 0, 0, 0, 0, time.UTC)

// Calendar places season days on the calendar.
type Calendar struct {
	Start  time.Time // Midnight UTC of day 1
	Length int       // Last playable day
}

// RunDate returns midnight UTC of the given season day.
func (c Calendar) RunDate(day int) time.Time {
	start := c.Start.UTC()
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, day-1)
}

// Contains reports whether day is a playable season day.
func (c Calendar) Contains(day int) bool {
	return day >= 1 && day <= c.Length
}

// DaysLeft returns how many days remain after lastDay.
func (c Calendar) DaysLeft(lastDay int) int {
	if lastDay >= c.Length {
		return 0
	}
	return c.Length - lastDay
}

package utils

import (
	"time"
)

const day = 24 * time.Hour

// truncateDay drops the clock part, working on the UTC calendar date.
func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// GrowDay returns the 1-based day of a grow that started at start. The start date itself
// is day 1. Dates before the start yield zero or negative values.
func GrowDay(start, date time.Time) int {
	diff := truncateDay(date).Sub(truncateDay(start))
	days := int(diff / day)
	if diff < 0 && diff%day != 0 {
		days--
	}
	return days + 1
}

// GrowWeek returns the 1-based week for a grow day, 0 for days before the start.
func GrowWeek(growDay int) int {
	if growDay < 1 {
		return 0
	}
	return (growDay-1)/7 + 1
}

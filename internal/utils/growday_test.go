package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGrowDay(t *testing.T) {
	start := time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"same instant", start, 1},
		{"later same day", time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC), 1},
		{"next morning", time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC), 2},
		{"one week later", time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC), 8},
		{"across leap day", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), 0},
		{"two days before", time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GrowDay(start, tt.date))
		})
	}
}

func TestGrowDayUsesUTCCalendar(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	start := time.Date(2024, 3, 1, 0, 30, 0, 0, berlin) // 2024-02-29 23:30 UTC
	date := time.Date(2024, 3, 1, 1, 30, 0, 0, berlin)  // 2024-03-01 00:30 UTC

	assert.Equal(t, 2, GrowDay(start, date))
}

func TestGrowWeek(t *testing.T) {
	assert.Equal(t, 0, GrowWeek(0))
	assert.Equal(t, 0, GrowWeek(-3))
	assert.Equal(t, 1, GrowWeek(1))
	assert.Equal(t, 1, GrowWeek(7))
	assert.Equal(t, 2, GrowWeek(8))
	assert.Equal(t, 11, GrowWeek(71))
}

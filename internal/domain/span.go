package domain

import (
	"fmt"
	"math"
)

// SecondsPerHour is used to convert spans to hours.
const SecondsPerHour = 3600

// Hours converts seconds to hours rounded to two decimals.
func Hours(seconds int64) float64 {
	return math.Round(float64(seconds)/SecondsPerHour*100) / 100
}

// FormatDuration renders seconds as "8h 0m", "45m" or "30s".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / SecondsPerHour
	m := (seconds % SecondsPerHour) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

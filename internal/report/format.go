package report

import (
	"fmt"
	"time"
)

// FormatClock renders a live timer as H:MM:SS, or MM:SS under an hour.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatShort renders a total as "1h 05m", or "5m" under an hour.
func FormatShort(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	h, m := total/60, total%60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatPercent renders a share percentage rounded to a whole number.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.0f%%", p)
}

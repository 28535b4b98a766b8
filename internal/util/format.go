// Package util holds small formatting helpers for the status line.
package util

import (
	"fmt"
	"time"
)

// FormatDuration formats d as m:ss, or h:mm:ss from one hour up.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h := total / 3600
	m := total / 60 % 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatPosition formats "elapsed / total". An unknown (zero) total is shown
// as --:--.
func FormatPosition(elapsed, total time.Duration) string {
	if total <= 0 {
		return FormatDuration(elapsed) + " / --:--"
	}
	return FormatDuration(min(elapsed, total)) + " / " + FormatDuration(total)
}

// Ratio returns elapsed/total clamped to [0, 1], or 0 when total is unknown.
func Ratio(elapsed, total time.Duration) float64 {
	if total <= 0 || elapsed <= 0 {
		return 0
	}
	if elapsed >= total {
		return 1
	}
	return float64(elapsed) / float64(total)
}

package util

import (
	"fmt"
	"time"
)

// FormatDuration formats a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatRate formats a sample rate, switching to k and M suffixes above
// a thousand.
func FormatRate(sps float64) string {
	switch {
	case sps < 0:
		sps = 0
	case sps >= 1e6:
		return fmt.Sprintf("%.1fM sps", sps/1e6)
	case sps >= 1e3:
		return fmt.Sprintf("%.1fk sps", sps/1e3)
	}
	return fmt.Sprintf("%.0f sps", sps)
}

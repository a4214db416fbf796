package exam

import (
	"fmt"
	"math"
	"time"
)

// Elapsed is the time since start, never negative.
func Elapsed(start, now time.Time) time.Duration {
	if now.Before(start) {
		return 0
	}
	return now.Sub(start)
}

// Remaining is what is left of limit at now, clamped at zero.
func Remaining(start, now time.Time, limit time.Duration) time.Duration {
	left := limit - Elapsed(start, now)
	if left < 0 {
		return 0
	}
	return left
}

// Seconds rounds d up to whole seconds so a countdown shows its full length
// at start and hits zero exactly at the deadline.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// FormatClock renders seconds as HH:MM:SS; negative values show as zero.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

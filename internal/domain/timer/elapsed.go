// Package timer holds the pure time arithmetic behind the session timer.
package timer

import (
	"fmt"
	"time"
)

// Elapsed returns the seconds to display for a timer whose persisted base is
// baseSeconds and which has been ticking since startRefMs (a millisecond epoch).
// A nil start reference means the timer is frozen. A start reference in the
// future (clock skew) contributes nothing.
func Elapsed(baseSeconds int64, startRefMs *int64, now time.Time) int64 {
	if startRefMs == nil {
		return baseSeconds
	}
	delta := (now.UnixMilli() - *startRefMs) / 1000
	if delta < 0 {
		delta = 0
	}
	return baseSeconds + delta
}

// Format renders seconds as HH:MM:SS.
func Format(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Minutes rounds seconds to the nearest whole minute.
func Minutes(seconds int64) int64 {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 30) / 60
}

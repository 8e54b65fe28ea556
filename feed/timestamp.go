package feed

import (
	"time"

	"mitchwire/mitch"
)

// NanosSinceMidnightUTC returns the nanosecond count since the most
// recent UTC midnight, the reference epoch for header timestamps.
func NanosSinceMidnightUTC(t time.Time) uint64 {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return uint64(t.Sub(midnight).Nanoseconds())
}

// Now48 stamps the current wall clock as a wire timestamp.
func Now48() mitch.Timestamp48 {
	return mitch.NewTimestamp48(NanosSinceMidnightUTC(time.Now()))
}

package utils

import (
	"log"
	"time"
)

// TimeNowIn returns the current time in the given IANA timezone.
func TimeNowIn(tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("Failed to load location %s, falling back to UTC: %v", tz, err)
		return time.Now().UTC()
	}
	return time.Now().In(loc)
}

// TruncateToTimeframe floors ts to the start of its timeframe bucket.
func TruncateToTimeframe(ts time.Time, tf time.Duration) time.Time {
	return ts.Truncate(tf)
}

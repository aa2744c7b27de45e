package ratelimit

import "time"

func expired(now, start time.Time, window time.Duration) bool {
	return start.IsZero() || now.Before(start) || now.Sub(start) >= window
}

// under reports whether one more unit stays within max. Zero max is unlimited.
func under(count, max int) bool {
	return max <= 0 || count+1 <= max
}

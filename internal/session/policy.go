package session

import "time"

// IsExpired reports whether a session whose last validated activity happened
// at lastActivityAt has outlived the idle window at the given instant.
func IsExpired(lastActivityAt, now time.Time, idleTimeout time.Duration) bool {
	return now.Sub(lastActivityAt) > idleTimeout
}

// ShouldThrottle reports whether a refresh attempt at the given instant comes
// too soon after the previous granted refresh. Keyed by wall clock, never by
// request count, so bursty traffic cannot amplify refresh work.
func ShouldThrottle(lastRefreshAt, now time.Time, refreshInterval time.Duration) bool {
	return now.Sub(lastRefreshAt) < refreshInterval
}

package helper

import "time"

// RateLimiter gates a repeated event (a warning log line, a rate-limited
// field update) to at most one occurrence per window. Its one caller in
// this module is the version-mismatch warning in server/wire's
// VersionGate (spec.md §4.8); nothing writes
// ProxyState.LastVersionErrorTime through it.
type RateLimiter struct {
	window time.Duration
	last   Timestamp
	fired  bool
}

// NewRateLimiter builds a limiter with the given window.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{window: window}
}

// Allow reports whether an event at ts may fire, and if so records ts as
// the new last-fired time. Call sites must only act on a true result.
func (r *RateLimiter) Allow(ts Timestamp) bool {
	if r.fired && ts.Sub(r.last) < r.window {
		return false
	}
	r.last = ts
	r.fired = true
	return true
}

package realtime

import "time"

// RateLimiter caps inbound frames from one viewer at limit per window.
// Viewers have nothing to say, so it only trips on a misbehaving client.
//
// The last limit arrival times sit in a ring; a frame is allowed once the
// oldest of them has left the window. Each read loop owns its limiter, so
// there is no locking.
type RateLimiter struct {
	ring   []time.Time
	next   int
	window time.Duration
}

// NewRateLimiter constructs a RateLimiter; invalid inputs fall back to defaults.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = rateLimitEvents
	}
	if window <= 0 {
		window = rateLimitWindow
	}
	return &RateLimiter{ring: make([]time.Time, limit), window: window}
}

// Allow reports whether a frame arriving at now is within budget and, if so,
// counts it.
func (r *RateLimiter) Allow(now time.Time) bool {
	oldest := r.ring[r.next]
	if !oldest.IsZero() && now.Sub(oldest) < r.window {
		return false
	}
	r.ring[r.next] = now
	r.next = (r.next + 1) % len(r.ring)
	return true
}

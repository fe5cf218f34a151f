package authapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// failureLog remembers recent failed logins per key ("ip:<addr>", "user:<name>").
type failureLog struct {
	mu     sync.Mutex
	window time.Duration
	byKey  map[string][]time.Time
}

func newFailureLog(window time.Duration) *failureLog {
	return &failureLog{window: window, byKey: make(map[string][]time.Time)}
}

// record appends a failure at now and trims entries older than the window.
func (f *failureLog) record(key string, now time.Time) {
	if key == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey[key] = append(trimBefore(f.byKey[key], now.Add(-f.window)), now)
}

// blocked reports whether key has max or more failures inside the window.
func (f *failureLog) blocked(key string, now time.Time, max int) (bool, time.Duration) {
	if key == "" || max <= 0 {
		return false, 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := trimBefore(f.byKey[key], now.Add(-f.window))
	if len(kept) == 0 {
		delete(f.byKey, key)
	} else {
		f.byKey[key] = kept
	}
	return evaluateWindowThrottle(now, kept, max, f.window)
}

// reset forgets key (after a successful login).
func (f *failureLog) reset(key string) {
	f.mu.Lock()
	delete(f.byKey, key)
	f.mu.Unlock()
}

// evaluateWindowThrottle blocks when max failures fall inside window and
// reports how long until the oldest of them ages out.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	cut := now.Add(-window)
	var (
		n      int
		oldest time.Time
	)
	for _, t := range failures {
		if !t.After(cut) {
			continue
		}
		n++
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
	}
	if n < max {
		return false, 0
	}
	return true, oldest.Add(window).Sub(now)
}

func trimBefore(ts []time.Time, cut time.Time) []time.Time {
	out := ts[:0]
	for _, t := range ts {
		if t.After(cut) {
			out = append(out, t)
		}
	}
	return out
}

func ipKey(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return "ip:" + ip.String()
}

func userKey(username string) string {
	if username == "" {
		return ""
	}
	return "user:" + username
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}

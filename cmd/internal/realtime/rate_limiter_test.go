package realtime

import (
	"testing"
	"time"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, 10*time.Second)
	t0 := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{at: 0, want: true},
		{at: 1 * time.Second, want: true},
		{at: 2 * time.Second, want: true},
		{at: 3 * time.Second, want: false}, // three in the last 10s
		{at: 9 * time.Second, want: false},
		{at: 10 * time.Second, want: true}, // t0 left the window
		{at: 10 * time.Second, want: false},
		{at: 11 * time.Second, want: true}, // 1s left
		{at: 30 * time.Second, want: true},
	}

	for i, s := range steps {
		if got := rl.Allow(t0.Add(s.at)); got != s.want {
			t.Fatalf("step %d at +%v: Allow=%v want=%v", i, s.at, got, s.want)
		}
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0, 0)
	now := time.Now()
	for i := 0; i < rateLimitEvents; i++ {
		if !rl.Allow(now) {
			t.Fatalf("frame %d rejected below the default limit", i)
		}
	}
	if rl.Allow(now) {
		t.Fatalf("frame past the default limit allowed")
	}
}

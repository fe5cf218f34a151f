package realtime

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"beer/cmd/security/token"
)

// Router maps event ids to rooms. At most one live room exists per id.
type Router struct {
	mu    sync.Mutex
	rooms map[string]*Room

	cfg      Config
	patterns []string
	log      *slog.Logger
	metrics  *Metrics
}

// NewRouter constructs an empty router. metrics may be nil.
func NewRouter(log *slog.Logger, cfg Config, metrics *Metrics) *Router {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Router{
		rooms:    make(map[string]*Room),
		cfg:      cfg,
		patterns: cfg.originPatterns(),
		log:      log,
		metrics:  metrics,
	}
}

// Resolve returns the room for eventID, creating it if absent.
func (rt *Router) Resolve(eventID string) *Room {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if room, ok := rt.rooms[eventID]; ok {
		return room
	}
	room := newRoom(eventID, rt.cfg, rt.patterns, rt.log, rt.metrics)
	rt.rooms[eventID] = room
	rt.metrics.roomOpened()
	return room
}

// Authorized reports whether credential matches the trigger secret.
// Lets callers reject a bad credential before any other lookup.
func (rt *Router) Authorized(credential string) bool {
	return token.Equal(credential, rt.cfg.TriggerSecret)
}

// Len returns the number of live rooms.
func (rt *Router) Len() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.rooms)
}

// EvictIdle retires and drops every room with no registered viewers.
// Retirement happens under the room's registry lock, so a racing Connect
// sees ErrRoomRetired and re-resolves into a fresh room.
func (rt *Router) EvictIdle() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	n := 0
	for id, room := range rt.rooms {
		if room.registry.retireIfEmpty() {
			delete(rt.rooms, id)
			n++
		}
	}
	rt.metrics.roomsEvicted(n)
	return n
}

// RunJanitor calls EvictIdle every interval until ctx is done.
// A non-positive interval returns immediately.
func (rt *Router) RunJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := rt.EvictIdle(); n > 0 {
				rt.log.Debug("room.evict", "rooms", n)
			}
		}
	}
}

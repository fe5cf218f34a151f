// Package event exposes the narrow event lookup the realtime layer needs.
//
// Event CRUD lives elsewhere; this package only answers "does this event exist".
package event

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned when an event id does not match any event.
var ErrNotFound = errors.New("event not found")

// Directory resolves event identifiers.
type Directory interface {
	// Lookup returns the canonical event id, or ErrNotFound.
	Lookup(ctx context.Context, id string) (string, error)
}

// MemoryDirectory is a static in-process Directory for dev and tests.
type MemoryDirectory struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewMemoryDirectory constructs a directory seeded with ids.
func NewMemoryDirectory(ids ...string) *MemoryDirectory {
	d := &MemoryDirectory{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		d.Add(id)
	}
	return d
}

// Add registers an event id.
func (d *MemoryDirectory) Add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	d.mu.Lock()
	d.ids[id] = struct{}{}
	d.mu.Unlock()
}

// Lookup reports whether id is known.
func (d *MemoryDirectory) Lookup(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.RLock()
	_, ok := d.ids[id]
	d.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

// AnyDirectory accepts every non-empty id. Used when no event source is configured.
type AnyDirectory struct{}

// Lookup accepts any non-blank id.
func (AnyDirectory) Lookup(_ context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", ErrNotFound
	}
	return id, nil
}

package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// BroadcastResult summarizes one fan-out pass.
type BroadcastResult struct {
	Attempted int
	Delivered int
	Failed    int
}

// Registry is the set of viewers of one room.
//
// Set mutation is a single critical section; network writes happen outside it.
type Registry struct {
	mu      sync.Mutex
	peers   map[string]Peer
	retired bool

	sendTimeout time.Duration
	fanout      int
}

// NewRegistry constructs an empty registry. Zero values select defaults.
func NewRegistry(sendTimeout time.Duration, fanout int) *Registry {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if fanout <= 0 {
		fanout = defaultFanoutLimit
	}
	return &Registry{
		peers:       make(map[string]Peer),
		sendTimeout: sendTimeout,
		fanout:      fanout,
	}
}

// Add registers p.
func (r *Registry) Add(p Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.retired {
		return ErrRoomRetired
	}
	if _, dup := r.peers[p.ID()]; dup {
		return ErrAlreadyRegistered
	}
	r.peers[p.ID()] = p
	return nil
}

// Remove unregisters p and reports whether it was present.
func (r *Registry) Remove(p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.peers[p.ID()]
	if !ok || cur != p {
		return false
	}
	delete(r.peers, p.ID())
	return true
}

// Len returns the number of registered peers, including ones still connecting.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// retireIfEmpty marks an empty registry as retired. A retired registry
// rejects Add and Broadcast with ErrRoomRetired.
func (r *Registry) retireIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.peers) > 0 {
		return false
	}
	r.retired = true
	return true
}

// Broadcast sends msg to every peer that was Open when the pass started.
//
// Peers still connecting are skipped. A peer that is closed, or whose write
// fails or exceeds the send timeout, is removed and closed. One bad peer
// never stops delivery to the others. Cancelling ctx does not cut the pass
// short: only the per-peer send timeout bounds a write, so a caller that
// gives up cannot make healthy viewers look broken.
func (r *Registry) Broadcast(ctx context.Context, msg []byte) (BroadcastResult, error) {
	r.mu.Lock()
	if r.retired {
		r.mu.Unlock()
		return BroadcastResult{}, ErrRoomRetired
	}
	targets := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if p.State() == StateConnecting {
			continue
		}
		targets = append(targets, p)
	}
	r.mu.Unlock()

	base := context.WithoutCancel(ctx)

	var (
		g                 errgroup.Group
		delivered, failed atomic.Int64
	)
	g.SetLimit(r.fanout)

	for _, p := range targets {
		g.Go(func() error {
			if p.State() != StateOpen {
				failed.Add(1)
				r.drop(p)
				return nil
			}

			sctx, cancel := context.WithTimeout(base, r.sendTimeout)
			err := p.Send(sctx, msg)
			cancel()

			if err != nil {
				failed.Add(1)
				r.drop(p)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return BroadcastResult{
		Attempted: len(targets),
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

func (r *Registry) drop(p Peer) {
	r.Remove(p)
	p.Close()
}

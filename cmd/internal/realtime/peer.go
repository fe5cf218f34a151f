package realtime

import (
	"context"
	"sync/atomic"

	"github.com/coder/websocket"
)

// PeerState is the lifecycle of one viewer connection.
// Transitions only move forward: Connecting -> Open -> Closed, or Connecting -> Closed.
type PeerState int32

const (
	StateConnecting PeerState = iota
	StateOpen
	StateClosed
)

func (s PeerState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Peer is one registered viewer as the registry sees it.
type Peer interface {
	ID() string
	State() PeerState
	// Send delivers one text frame; it must honor ctx.
	Send(ctx context.Context, msg []byte) error
	// Close tears the transport down after a failed delivery. Idempotent.
	Close()
}

// wsPeer is a Peer backed by a coder/websocket connection.
type wsPeer struct {
	id    string
	state atomic.Int32

	// conn is set once, before the Connecting -> Open transition.
	conn *websocket.Conn

	// onClosed runs exactly once, on the transition into Closed.
	onClosed func()
}

func newWSPeer(id string) *wsPeer {
	p := &wsPeer{id: id}
	p.state.Store(int32(StateConnecting))
	return p
}

func (p *wsPeer) ID() string { return p.id }

func (p *wsPeer) State() PeerState { return PeerState(p.state.Load()) }

// open moves Connecting -> Open. It fails if the peer was closed meanwhile.
func (p *wsPeer) open(conn *websocket.Conn) bool {
	p.conn = conn
	return p.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// markClosed is the single close transition. Only the first caller gets true.
func (p *wsPeer) markClosed() bool {
	for {
		cur := p.state.Load()
		if PeerState(cur) == StateClosed {
			return false
		}
		if p.state.CompareAndSwap(cur, int32(StateClosed)) {
			if p.onClosed != nil {
				p.onClosed()
			}
			return true
		}
	}
}

func (p *wsPeer) Send(ctx context.Context, msg []byte) error {
	if p.State() != StateOpen {
		return errPeerNotOpen
	}
	return p.conn.Write(ctx, websocket.MessageText, msg)
}

func (p *wsPeer) Close() {
	p.shutdown(websocket.StatusGoingAway, "delivery failed", true)
}

// shutdown closes the transport once. now skips the close handshake, which is
// what a peer we just failed to write to deserves.
func (p *wsPeer) shutdown(code websocket.StatusCode, reason string, now bool) {
	if !p.markClosed() {
		return
	}
	if p.conn == nil {
		return
	}
	if now {
		_ = p.conn.CloseNow()
		return
	}
	_ = p.conn.Close(code, reason)
}

package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"beer/cmd/identity/ids"
	"beer/cmd/security/token"
)

// Room is the set of viewers of one event plus the trigger that refreshes them.
//
// A room never looks at sessions. Whoever may open a connection is decided
// before Connect is called.
type Room struct {
	id       string
	secret   string
	cfg      Config
	patterns []string
	registry *Registry

	log     *slog.Logger
	metrics *Metrics
}

func newRoom(id string, cfg Config, patterns []string, log *slog.Logger, metrics *Metrics) *Room {
	return &Room{
		id:       id,
		secret:   cfg.TriggerSecret,
		cfg:      cfg,
		patterns: patterns,
		registry: NewRegistry(cfg.SendTimeout, cfg.FanoutLimit),
		log:      log.With("event_id", id),
		metrics:  metrics,
	}
}

// ID returns the event id this room serves.
func (rm *Room) ID() string { return rm.id }

// Len returns the number of registered viewers.
func (rm *Room) Len() int { return rm.registry.Len() }

// Connect upgrades r to a WebSocket viewer and blocks until it goes away.
//
// Returns ErrNotUpgrade (nothing written) for plain HTTP requests and
// ErrRoomRetired (nothing written) if the room was evicted underneath the
// caller. Once the handshake starts, failures are handled here and Connect
// returns nil.
func (rm *Room) Connect(w http.ResponseWriter, r *http.Request) error {
	if !isWebSocketUpgrade(r) {
		return ErrNotUpgrade
	}

	peerID, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		return err
	}

	p := newWSPeer(peerID)
	p.onClosed = func() {
		rm.registry.Remove(p)
		rm.metrics.connRemoved()
	}

	// Registered as Connecting: counts against eviction, skipped by Broadcast.
	if err := rm.registry.Add(p); err != nil {
		return err
	}
	rm.metrics.connAdded()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     rm.patterns,
		InsecureSkipVerify: rm.cfg.DevInsecure,
	})
	if err != nil {
		rm.log.Info("ws.accept.fail", "peer_id", peerID, "err", err)
		p.shutdown(websocket.StatusInternalError, "", true)
		return nil
	}

	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if !p.open(conn) {
		_ = conn.CloseNow()
		return nil
	}
	rm.log.Info("ws.open", "peer_id", peerID, "remote", r.RemoteAddr)

	// closeWith is the one way out of Open.
	closeWith := func(code websocket.StatusCode, reason string) {
		p.shutdown(code, reason, false)
		cancel()
	}

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		rm.heartbeat(ctx, p, closeWith)
	}()

	rl := NewRateLimiter(rm.cfg.InboundEvents, rm.cfg.InboundWindow)

	for {
		// Inbound frames carry nothing; reading keeps control frames flowing.
		_, _, err := conn.Read(ctx)
		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				closeWith(websocket.StatusNormalClosure, "peer closed")
			case readErrCtxDone:
				closeWith(websocket.StatusNormalClosure, "context done")
			case readErrConnClosed:
				closeWith(websocket.StatusAbnormalClosure, "conn closed")
			default:
				rm.log.Info("ws.read.fail", "peer_id", peerID, "err", err)
				closeWith(websocket.StatusAbnormalClosure, "read failed")
			}
			break
		}

		if !rl.Allow(time.Now()) {
			rm.log.Info("ws.reject.rate", "peer_id", peerID)
			closeWith(websocket.StatusPolicyViolation, "rate limited")
			break
		}
	}

	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
	rm.log.Info("ws.close", "peer_id", peerID)
	return nil
}

// heartbeat pings the peer; maxPingFailures misses in a row count as a
// transport failure.
func (rm *Room) heartbeat(ctx context.Context, p *wsPeer, closeWith func(websocket.StatusCode, string)) {
	t := time.NewTicker(rm.cfg.HeartbeatInterval)
	defer t.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			hbCtx, hbCancel := context.WithTimeout(ctx, rm.cfg.HeartbeatTimeout)
			err := p.conn.Ping(hbCtx)
			hbCancel()

			if err == nil {
				failures = 0
				continue
			}
			if ctx.Err() != nil {
				return
			}
			failures++
			rm.log.Info("ws.ping.fail", "peer_id", p.ID(), "failures", failures, "err", err)
			if failures >= maxPingFailures {
				closeWith(websocket.StatusGoingAway, "heartbeat failed")
				return
			}
		}
	}
}

// Trigger checks credential against the shared secret and, if it matches,
// sends the refresh message to every open viewer.
func (rm *Room) Trigger(ctx context.Context, credential string) (BroadcastResult, error) {
	if !token.Equal(credential, rm.secret) {
		return BroadcastResult{}, ErrForbidden
	}

	res, err := rm.registry.Broadcast(ctx, []byte(RefreshMessage))
	if err != nil {
		return res, err
	}

	rm.metrics.observeBroadcast(res)
	rm.log.Info("room.broadcast",
		"attempted", res.Attempted,
		"delivered", res.Delivered,
		"failed", res.Failed,
	)
	return res, nil
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Upgrade")), "websocket")
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}

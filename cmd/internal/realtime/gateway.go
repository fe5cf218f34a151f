package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"beer/cmd/internal/event"
)

// maxResolveAttempts bounds re-resolution after a room is retired underneath a request.
const maxResolveAttempts = 3

// Gateway is the HTTP face of the realtime layer:
//
//	GET  /event/{eventId}  viewer WebSocket
//	POST /event/{eventId}  refresh trigger (Authorization: Bearer <key>)
type Gateway struct {
	log    *slog.Logger
	router *Router
	events event.Directory

	originRequired bool
	allowedOrigins []string
}

// NewGateway constructs a gateway over router and the event directory.
func NewGateway(log *slog.Logger, router *Router, events event.Directory, cfg Config) *Gateway {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if events == nil {
		events = event.AnyDirectory{}
	}
	return &Gateway{
		log:            log,
		router:         router,
		events:         events,
		originRequired: cfg.OriginRequired,
		allowedOrigins: cfg.AllowedOrigins,
	}
}

// HandleConnect serves GET /event/{eventId}.
func (g *Gateway) HandleConnect(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")

	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		writeMessage(w, http.StatusForbidden, "Origin not allowed")
		return
	}

	if !g.eventExists(w, r, eventID) {
		return
	}

	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		err := g.router.Resolve(eventID).Connect(w, r)
		switch {
		case err == nil:
			return
		case errors.Is(err, ErrRoomRetired):
			continue
		case errors.Is(err, ErrNotUpgrade):
			writeText(w, http.StatusBadRequest, "Expected websocket")
			return
		default:
			g.log.Error("ws.connect.fail", "event_id", eventID, "err", err)
			writeMessage(w, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	g.log.Warn("ws.connect.retired", "event_id", eventID, "attempts", maxResolveAttempts)
	writeMessage(w, http.StatusServiceUnavailable, "Try again")
}

// HandleTrigger serves POST /event/{eventId}.
// The credential is checked before the event lookup.
func (g *Gateway) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")

	credential, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok || !g.router.Authorized(credential) {
		g.log.Info("trigger.reject", "event_id", eventID, "remote", r.RemoteAddr)
		writeMessage(w, http.StatusForbidden, "Not allowed")
		return
	}

	if !g.eventExists(w, r, eventID) {
		return
	}

	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		_, err := g.router.Resolve(eventID).Trigger(r.Context(), credential)
		switch {
		case err == nil:
			writeText(w, http.StatusOK, "OK")
			return
		case errors.Is(err, ErrRoomRetired):
			continue
		case errors.Is(err, ErrForbidden):
			writeMessage(w, http.StatusForbidden, "Not allowed")
			return
		default:
			g.log.Error("trigger.fail", "event_id", eventID, "err", err)
			writeMessage(w, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	writeMessage(w, http.StatusServiceUnavailable, "Try again")
}

func (g *Gateway) eventExists(w http.ResponseWriter, r *http.Request, eventID string) bool {
	_, err := g.events.Lookup(r.Context(), eventID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, event.ErrNotFound):
		g.log.Info("event.not_found", "event_id", eventID)
		writeMessage(w, http.StatusNotFound, "Event does not exist")
	default:
		g.log.Error("event.lookup.fail", "event_id", eventID, "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal error")
	}
	return false
}

// bearerToken extracts <token> from "Bearer <token>".
func bearerToken(h string) (string, bool) {
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

// ---- origin policy ----

func (g *Gateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.originRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.allowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)
	for _, a := range g.allowedOrigins {
		a = strings.TrimSpace(a)
		switch {
		case a == "":
			continue
		case a == "*":
			return nil
		case origin == a:
			return nil
		case originHost != "" && originHost == originHostOnly(a):
			return nil
		}
	}

	return fmt.Errorf("origin not allowed: %s", origin)
}

// ---- responses ----

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Message string `json:"message"`
	}{Message: msg})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

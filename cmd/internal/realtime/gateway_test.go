package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"beer/cmd/internal/event"
)

const testKey = "s3cret-api-key"

type gatewayHarness struct {
	srv    *httptest.Server
	router *Router
}

func newGatewayHarness(t *testing.T) *gatewayHarness {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	rt := NewRouter(log, cfg, nil)
	gw := NewGateway(log, rt, event.NewMemoryDirectory("fest"), cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /event/{eventId}", gw.HandleConnect)
	mux.HandleFunc("POST /event/{eventId}", gw.HandleTrigger)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &gatewayHarness{srv: srv, router: rt}
}

func (h *gatewayHarness) dial(t *testing.T, eventID string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/event/" + eventID
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.CloseNow() })
	return c
}

func (h *gatewayHarness) trigger(t *testing.T, eventID, auth string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/event/"+eventID, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

// waitOpen blocks until the room has n open viewers.
func waitOpen(t *testing.T, room *Room, n int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		room.registry.mu.Lock()
		open := 0
		for _, p := range room.registry.peers {
			if p.State() == StateOpen {
				open++
			}
		}
		total := len(room.registry.peers)
		room.registry.mu.Unlock()

		if open == n && total == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d open viewers (open=%d total=%d)", n, open, total)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readText(ctx context.Context, c *websocket.Conn) (string, error) {
	typ, b, err := c.Read(ctx)
	if err != nil {
		return "", err
	}
	if typ != websocket.MessageText {
		return "", io.ErrUnexpectedEOF
	}
	return string(b), nil
}

func expectNoMessage(t *testing.T, c *websocket.Conn) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if msg, err := readText(ctx, c); err == nil {
		t.Fatalf("expected no message, got %q", msg)
	}
}

func decodeMessage(t *testing.T, body string) string {
	t.Helper()
	var out struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("body %q is not a message object: %v", body, err)
	}
	return out.Message
}

func TestGateway_UnknownEvent(t *testing.T) {
	t.Parallel()
	h := newGatewayHarness(t)

	res, err := http.Get(h.srv.URL + "/event/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", res.StatusCode)
	}
	if got := decodeMessage(t, string(b)); got != "Event does not exist" {
		t.Fatalf("message=%q", got)
	}

	code, body := h.trigger(t, "nope", "Bearer "+testKey)
	if code != http.StatusNotFound || decodeMessage(t, body) != "Event does not exist" {
		t.Fatalf("trigger unknown event: %d %q", code, body)
	}
}

func TestGateway_PlainGetIsBadRequest(t *testing.T) {
	t.Parallel()
	h := newGatewayHarness(t)

	res, err := http.Get(h.srv.URL + "/event/fest")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()

	if res.StatusCode != http.StatusBadRequest || string(b) != "Expected websocket" {
		t.Fatalf("got %d %q", res.StatusCode, b)
	}
}

func TestGateway_TriggerRejectsBadCredential(t *testing.T) {
	t.Parallel()
	h := newGatewayHarness(t)

	viewer := h.dial(t, "fest")
	waitOpen(t, h.router.Resolve("fest"), 1)

	for _, auth := range []string{"", testKey, "Bearer wrong", "Basic " + testKey} {
		code, body := h.trigger(t, "fest", auth)
		if code != http.StatusForbidden || decodeMessage(t, body) != "Not allowed" {
			t.Fatalf("auth %q: got %d %q", auth, code, body)
		}
	}

	// Credential is checked before event existence.
	if code, _ := h.trigger(t, "nope", "Bearer wrong"); code != http.StatusForbidden {
		t.Fatalf("expected 403 for bad key on unknown event, got %d", code)
	}

	expectNoMessage(t, viewer)
}

func TestGateway_RefreshScenario(t *testing.T) {
	t.Parallel()
	h := newGatewayHarness(t)
	room := h.router.Resolve("fest")

	c1 := h.dial(t, "fest")
	c2 := h.dial(t, "fest")
	waitOpen(t, room, 2)

	code, body := h.trigger(t, "fest", "Bearer "+testKey)
	if code != http.StatusOK || body != "OK" {
		t.Fatalf("trigger: %d %q", code, body)
	}

	for i, c := range []*websocket.Conn{c1, c2} {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		msg, err := readText(ctx, c)
		cancel()
		if err != nil || msg != RefreshMessage {
			t.Fatalf("viewer %d: msg=%q err=%v", i, msg, err)
		}
	}

	// A viewer joining after the trigger sees nothing from it.
	c3 := h.dial(t, "fest")
	waitOpen(t, room, 3)
	expectNoMessage(t, c3)

	// A departed viewer is unregistered.
	_ = c3.Close(websocket.StatusNormalClosure, "bye")
	deadline := time.Now().Add(3 * time.Second)
	for room.Len() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("closed viewer still registered (len=%d)", room.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGateway_RoomsAreIsolated(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	rt := NewRouter(log, cfg, nil)
	gw := NewGateway(log, rt, event.NewMemoryDirectory("a", "b"), cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /event/{eventId}", gw.HandleConnect)
	mux.HandleFunc("POST /event/{eventId}", gw.HandleTrigger)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	h := &gatewayHarness{srv: srv, router: rt}

	ca := h.dial(t, "a")
	cb := h.dial(t, "b")
	waitOpen(t, rt.Resolve("a"), 1)
	waitOpen(t, rt.Resolve("b"), 1)

	if code, _ := h.trigger(t, "a", "Bearer "+testKey); code != http.StatusOK {
		t.Fatalf("trigger a: %d", code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if msg, err := readText(ctx, ca); err != nil || msg != RefreshMessage {
		t.Fatalf("viewer of a: msg=%q err=%v", msg, err)
	}
	expectNoMessage(t, cb)
}

func TestGateway_OriginPolicy(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.OriginRequired = true
	gw := NewGateway(slog.New(slog.NewTextHandler(io.Discard, nil)), NewRouter(nil, cfg, nil), event.NewMemoryDirectory("fest"), cfg)

	cases := []struct {
		origin string
		ok     bool
	}{
		{origin: "", ok: false},
		{origin: "https://beer.omfj.no", ok: true},
		{origin: "http://localhost:4000", ok: true},
		{origin: "https://evil.example", ok: false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/event/fest", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		if err := gw.enforceOrigin(r); (err == nil) != tc.ok {
			t.Fatalf("origin %q: err=%v want ok=%v", tc.origin, err, tc.ok)
		}
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Bearer  abc": "abc",
		"Bearer ":     "",
		"abc":         "",
		"Basic abc":   "",
	}
	for in, want := range cases {
		got, ok := bearerToken(in)
		if got != want || ok != (want != "") {
			t.Fatalf("bearerToken(%q)=%q,%v want %q", in, got, ok, want)
		}
	}
}

func TestRoom_TriggerWithCancelledContextKeepsViewer(t *testing.T) {
	t.Parallel()
	h := newGatewayHarness(t)
	room := h.router.Resolve("fest")

	c := h.dial(t, "fest")
	waitOpen(t, room, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := room.Trigger(ctx, testKey)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if res != (BroadcastResult{Attempted: 1, Delivered: 1}) {
		t.Fatalf("result=%+v", res)
	}
	if room.Len() != 1 {
		t.Fatalf("viewer evicted by caller cancel; len=%d", room.Len())
	}

	rctx, rcancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer rcancel()
	if msg, err := readText(rctx, c); err != nil || msg != RefreshMessage {
		t.Fatalf("viewer: msg=%q err=%v", msg, err)
	}
}

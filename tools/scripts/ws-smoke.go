// Package main is a CI-friendly smoke test for a running beer server.
//
// It validates:
//   - two viewers can join one event room
//   - an authorized trigger reaches both viewers as one UPDATE frame each
//   - a trigger with the wrong key is refused with 403
//   - a plain GET on the event route is refused with 400
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"beer/cmd/internal/notify"
)

const refreshMessage = "UPDATE"

type viewer struct {
	name  string
	conn  *websocket.Conn
	inbox chan string
	errCh chan error
}

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "Base URL of the beer server")
		origin  = flag.String("origin", "http://localhost:5173", "Origin header to send (browser-like WS handshake)")
		eventID = flag.String("event", "dev-event", "Event ID to watch")
		apiKey  = flag.String("api-key", os.Getenv("BEER_API_KEY"), "Trigger secret (default $BEER_API_KEY)")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}
	if strings.TrimSpace(*apiKey) == "" {
		fatalf("missing -api-key")
	}

	root := context.Background()
	wsURL := wsEventURL(base, *eventID)

	client, err := notify.New(base.String(), *apiKey)
	if err != nil {
		fatalf("notify client: %v", err)
	}

	a := mustConnect(root, "A", wsURL, *origin, *timeout)
	defer closeWS(a.conn)
	b := mustConnect(root, "B", wsURL, *origin, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("connected: %s origin=%q\n", wsURL, *origin)
	}

	// Handshakes finish server side slightly after Dial returns; retry the
	// first trigger until both viewers have seen one refresh.
	mustWarmUp(root, client, *eventID, []*viewer{a, b}, *timeout)

	if err := client.Refresh(root, *eventID); err != nil {
		fatalf("trigger: %v", err)
	}
	for _, v := range []*viewer{a, b} {
		mustReceive(root, v, *timeout)
	}
	for _, v := range []*viewer{a, b} {
		mustNotReceive(root, v, 300*time.Millisecond)
	}

	bad, err := notify.New(base.String(), *apiKey+"-wrong")
	if err != nil {
		fatalf("notify client: %v", err)
	}
	if err := bad.Refresh(root, *eventID); !errors.Is(err, notify.ErrForbidden) {
		fatalf("wrong key: expected 403, got %v", err)
	}

	mustRejectPlainGET(root, base, *eventID, *timeout)

	fmt.Println("PASS")
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func wsEventURL(base *url.URL, eventID string) string {
	u := *base.JoinPath("event", eventID)
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

func mustConnect(parent context.Context, name, wsURL, origin string, stepTimeout time.Duration) *viewer {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: h})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	v := &viewer{
		name:  name,
		conn:  conn,
		inbox: make(chan string, 16),
		errCh: make(chan error, 1),
	}
	go v.readLoop(parent)
	return v
}

func (v *viewer) readLoop(ctx context.Context) {
	for {
		typ, data, err := v.conn.Read(ctx)
		if err != nil {
			v.errCh <- err
			return
		}
		if typ != websocket.MessageText {
			v.errCh <- fmt.Errorf("%s: unexpected frame type %v", v.name, typ)
			return
		}
		v.inbox <- string(data)
	}
}

func mustWarmUp(parent context.Context, client *notify.Client, eventID string, viewers []*viewer, stepTimeout time.Duration) {
	deadline := time.Now().Add(stepTimeout)
	seen := make(map[string]bool, len(viewers))

	for len(seen) < len(viewers) {
		if time.Now().After(deadline) {
			fatalf("warm-up: only %d/%d viewers received a refresh", len(seen), len(viewers))
		}
		if err := client.Refresh(parent, eventID); err != nil {
			fatalf("warm-up trigger: %v", err)
		}

		wait := time.After(150 * time.Millisecond)
	collect:
		for {
			select {
			case <-wait:
				break collect
			default:
			}
			got := false
			for _, v := range viewers {
				select {
				case msg := <-v.inbox:
					if msg != refreshMessage {
						fatalf("%s: unexpected message %q", v.name, msg)
					}
					seen[v.name] = true
					got = true
				case err := <-v.errCh:
					fatalf("%s: read: %v", v.name, err)
				default:
				}
			}
			if !got {
				time.Sleep(10 * time.Millisecond)
			}
		}
	}

	// Drop refreshes still in flight from the warm-up.
	time.Sleep(200 * time.Millisecond)
	for _, v := range viewers {
		for len(v.inbox) > 0 {
			<-v.inbox
		}
	}
}

func mustReceive(parent context.Context, v *viewer, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	select {
	case msg := <-v.inbox:
		if msg != refreshMessage {
			fatalf("%s: expected %q, got %q", v.name, refreshMessage, msg)
		}
	case err := <-v.errCh:
		fatalf("%s: read: %v", v.name, err)
	case <-ctx.Done():
		fatalf("%s: no refresh within %v", v.name, stepTimeout)
	}
}

func mustNotReceive(parent context.Context, v *viewer, wait time.Duration) {
	ctx, cancel := context.WithTimeout(parent, wait)
	defer cancel()

	select {
	case msg := <-v.inbox:
		fatalf("%s: expected exactly one refresh, got extra %q", v.name, msg)
	case err := <-v.errCh:
		fatalf("%s: read: %v", v.name, err)
	case <-ctx.Done():
	}
}

func mustRejectPlainGET(parent context.Context, base *url.URL, eventID string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.JoinPath("event", eventID).String(), nil)
	if err != nil {
		fatalf("plain GET: %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("plain GET: %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
	if res.StatusCode != http.StatusBadRequest {
		fatalf("plain GET: expected 400, got %d (%q)", res.StatusCode, body)
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}

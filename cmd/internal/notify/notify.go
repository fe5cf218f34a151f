// Package notify tells a running refresh service that an event changed.
//
// It is the client side of POST /event/{eventId}: the caller that registers
// a drink holds the API key and asks every viewer of the event to reload.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrForbidden means the service rejected the API key.
	ErrForbidden = errors.New("notify: api key rejected")
	// ErrUnknownEvent means the service does not know the event.
	ErrUnknownEvent = errors.New("notify: event does not exist")
)

const defaultTimeout = 10 * time.Second

// StatusError carries an unexpected response status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("notify: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("notify: unexpected status %d: %s", e.Code, e.Message)
}

// Client posts refresh triggers.
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a Client for the service at baseURL.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("notify: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("notify: base url must be http(s), got %q", baseURL)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("notify: empty api key")
	}

	c := &Client{
		base:   u,
		apiKey: apiKey,
		http:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Refresh asks every viewer of eventID to reload.
func (c *Client) Refresh(ctx context.Context, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return errors.New("notify: empty event id")
	}

	target := c.base.JoinPath("event", eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch res.StatusCode {
	case http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<10))
		return nil
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	default:
		return &StatusError{Code: res.StatusCode, Message: readMessage(res.Body)}
	}
}

func readMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4<<10))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(b))
}

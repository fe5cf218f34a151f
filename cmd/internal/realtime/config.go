package realtime

import (
	"errors"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Config is the realtime surface. The app layer fills it from file and env.
type Config struct {
	// TriggerSecret is the shared API key the web app presents to trigger a refresh.
	TriggerSecret string

	SendTimeout time.Duration
	FanoutLimit int

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	InboundEvents int
	InboundWindow time.Duration

	// EvictInterval drives the idle-room janitor; 0 disables it.
	EvictInterval time.Duration

	OriginRequired bool
	AllowedOrigins []string

	// DevInsecure disables websocket.Accept's origin check. Dev only.
	DevInsecure bool
}

// DefaultConfig returns production defaults. TriggerSecret is left empty,
// which rejects every trigger until configured.
func DefaultConfig() Config {
	return Config{
		SendTimeout:       defaultSendTimeout,
		FanoutLimit:       defaultFanoutLimit,
		HeartbeatInterval: heartbeatInterval,
		HeartbeatTimeout:  heartbeatTimeout,
		InboundEvents:     rateLimitEvents,
		InboundWindow:     rateLimitWindow,
		EvictInterval:     defaultEvictInterval,
		AllowedOrigins:    []string{"https://beer.omfj.no", "http://localhost:5173"},
	}
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	if c.SendTimeout <= 0 {
		return errors.New("realtime: send timeout must be > 0")
	}
	if c.FanoutLimit <= 0 {
		return errors.New("realtime: fanout limit must be > 0")
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatTimeout <= 0 {
		return errors.New("realtime: heartbeat interval and timeout must be > 0")
	}
	if c.HeartbeatTimeout >= c.HeartbeatInterval {
		return errors.New("realtime: heartbeat timeout must be shorter than the interval")
	}
	if c.EvictInterval < 0 {
		return errors.New("realtime: evict interval must be >= 0")
	}
	return nil
}

// originPatterns derives websocket.Accept host patterns from the origin allowlist.
// Accept authorizes same-host origins on its own; cross-origin needs a pattern.
func (c Config) originPatterns() []string {
	out := make([]string, 0, len(c.AllowedOrigins))
	for _, a := range c.AllowedOrigins {
		h := originHostOnly(a)
		if h == "" || h == "*" || slices.Contains(out, h) {
			continue
		}
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		s = strings.TrimSpace(u.Host)
		if s == "" {
			return ""
		}
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

package realtime

import "time"

// RefreshMessage is the only payload a room ever sends. Clients refetch on receipt.
const RefreshMessage = "UPDATE"

const (
	// Max bytes per inbound websocket frame. Viewers have nothing to say.
	maxFrameBytes = 4 << 10 // 4 KiB

	// Delivery defaults (env-overridable in the gateway config).
	defaultSendTimeout   = 5 * time.Second
	defaultFanoutLimit   = 64
	defaultEvictInterval = 5 * time.Minute

	closeGrace = 1 * time.Second
)

const (
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second
	maxPingFailures   = 3

	// Inbound frames per connection (frames per window) before a policy close.
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second
)

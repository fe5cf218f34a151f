package realtime

import "errors"

var (
	// ErrForbidden is returned by Trigger when the credential does not match.
	ErrForbidden = errors.New("realtime: trigger not allowed")

	// ErrNotUpgrade is returned by Connect for plain HTTP requests.
	ErrNotUpgrade = errors.New("realtime: expected websocket")

	// ErrAlreadyRegistered is returned by Registry.Add for a duplicate peer.
	ErrAlreadyRegistered = errors.New("realtime: peer already registered")

	// ErrRoomRetired is returned when a room was evicted between Resolve and use.
	// Callers re-resolve and retry.
	ErrRoomRetired = errors.New("realtime: room retired")

	errPeerNotOpen = errors.New("realtime: peer not open")
)

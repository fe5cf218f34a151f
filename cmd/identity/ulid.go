package identity

import (
	"time"

	"beer/cmd/identity/ids"
)

// NewUserID returns a new ULID (26-char string).
func NewUserID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

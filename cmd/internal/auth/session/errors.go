package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a secret does not resolve to a live session.
	// Expired sessions are reported as not found after they are deleted.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")

	// ErrStore marks failures of the backing store.
	ErrStore = errors.New("session store failure")
)

// StoreError wraps a backend failure with the store operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("session store %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

func storeErr(op string, err error) error {
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return StoreError{Op: op, Err: err}
}

package session

import (
	"context"
	"time"
)

// Session mirrors the session row: the hashed id, its owner and its expiry.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// Subject is the user record joined onto a session on lookup.
type Subject struct {
	ID       string
	Username string
}

// Store abstracts persistence for session state.
//
// Implementations must treat Delete of a missing row as success and must
// return ErrSessionNotFound from Lookup when no row matches.
type Store interface {
	// Create inserts a new session row.
	Create(ctx context.Context, s Session) error

	// Lookup loads a session by hashed id, joined to its subject.
	Lookup(ctx context.Context, id string) (Session, Subject, error)

	// Extend sets a new expiry for an existing session.
	Extend(ctx context.Context, id string, expiresAt time.Time) error

	// Delete removes a session row (idempotent).
	Delete(ctx context.Context, id string) error
}

// SubjectResolver resolves a subject for stores that cannot join on read.
type SubjectResolver func(ctx context.Context, userID string) (Subject, error)

package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a dev-only fallback when no database is configured.
// Lookups join against subjects registered with PutSubject, then the
// optional resolver; anything else resolves to a bare Subject{ID: userID}.
type MemoryStore struct {
	mu       sync.Mutex
	rows     map[string]Session
	subjects map[string]Subject
	resolver SubjectResolver
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[string]Session),
		subjects: make(map[string]Subject),
	}
}

// PutSubject registers a subject for lookups.
func (s *MemoryStore) PutSubject(subj Subject) {
	s.mu.Lock()
	s.subjects[subj.ID] = subj
	s.mu.Unlock()
}

// SetResolver installs a fallback subject lookup.
func (s *MemoryStore) SetResolver(r SubjectResolver) {
	s.mu.Lock()
	s.resolver = r
	s.mu.Unlock()
}

// Create inserts a session row.
func (s *MemoryStore) Create(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sess.ID] = sess
	return nil
}

// Lookup loads a session row by hashed id.
func (s *MemoryStore) Lookup(ctx context.Context, id string) (Session, Subject, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, Subject{}, err
	}
	s.mu.Lock()
	sess, ok := s.rows[id]
	subj, known := s.subjects[sess.UserID]
	resolver := s.resolver
	s.mu.Unlock()

	if !ok {
		return Session{}, Subject{}, ErrSessionNotFound
	}
	if known {
		return sess, subj, nil
	}
	if resolver == nil {
		return sess, Subject{ID: sess.UserID}, nil
	}
	subj, err := resolver(ctx, sess.UserID)
	if err != nil {
		return Session{}, Subject{}, err
	}
	return sess, subj, nil
}

// Extend updates the expiry of an existing row.
func (s *MemoryStore) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.rows[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.ExpiresAt = expiresAt
	s.rows[id] = sess
	return nil
}

// Delete removes a row (idempotent).
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.rows, id)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

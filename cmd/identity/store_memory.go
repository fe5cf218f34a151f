package identity

import (
	"context"
	"sync"
)

// MemoryStore is a dev-only Store kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]User
	byName map[string]string
	hashes map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]User),
		byName: make(map[string]string),
		hashes: make(map[string]string),
	}
}

// CreateUser inserts a user; usernames are unique.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := validateCreate(op, &in); err != nil {
		return User{}, err
	}

	id, err := NewUserID(in.Now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[in.Username]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	u := User{ID: id, Username: in.Username, CreatedAt: in.Now.UTC()}
	s.byID[id] = u
	s.byName[in.Username] = id
	s.hashes[id] = in.PasswordHash
	return u, nil
}

// Credentials looks up the login record for username.
func (s *MemoryStore) Credentials(ctx context.Context, username string) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[CleanUsername(username)]
	if !ok {
		return Credentials{}, notFound("identity.Credentials")
	}
	return Credentials{UserID: id, Username: s.byID[id].Username, PasswordHash: s.hashes[id]}, nil
}

// User returns a user by id.
func (s *MemoryStore) User(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, notFound("identity.User")
	}
	return u, nil
}

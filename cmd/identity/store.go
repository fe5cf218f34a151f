package identity

import (
	"context"
	"time"
)

// User is a registered account.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Credentials is what login verifies against. PasswordHash is a bcrypt hash.
type Credentials struct {
	UserID       string
	Username     string
	PasswordHash string
}

// CreateUserInput describes a new account. PasswordHash must already be hashed.
type CreateUserInput struct {
	Username     string
	PasswordHash string
	Now          time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	// Credentials returns the login record for username or ErrNotFound.
	Credentials(ctx context.Context, username string) (Credentials, error)
	// User returns a user by id or ErrNotFound.
	User(ctx context.Context, id string) (User, error)
}

func validateCreate(op string, in *CreateUserInput) error {
	in.Username = CleanUsername(in.Username)
	if !ValidUsername(in.Username) {
		return invalid(op, "username must be 3-255 letters or digits")
	}
	if in.PasswordHash == "" {
		return invalid(op, "password hash is required")
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return nil
}

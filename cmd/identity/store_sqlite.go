package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS "user" (
	id       TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	type     TEXT
);

CREATE TABLE IF NOT EXISTS user_password (
	user_id       TEXT PRIMARY KEY REFERENCES "user"(id) ON DELETE CASCADE,
	password_hash TEXT NOT NULL
);
`

// SQLiteStore implements Store on the same tables the web app uses.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db and ensures the identity tables exist.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("identity: nil db")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// CreateUser inserts the user and its password row in one transaction.
func (s *SQLiteStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := validateCreate(op, &in); err != nil {
		return User{}, err
	}

	userID, err := NewUserID(in.Now)
	if err != nil {
		return User{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO "user" (id, username) VALUES (?, ?)`, userID, in.Username); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
		return User{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO user_password (user_id, password_hash) VALUES (?, ?)`, userID, in.PasswordHash); err != nil {
		return User{}, err
	}
	if err := tx.Commit(); err != nil {
		return User{}, err
	}

	return User{ID: userID, Username: in.Username, CreatedAt: in.Now.UTC()}, nil
}

// Credentials returns the login record for username.
func (s *SQLiteStore) Credentials(ctx context.Context, username string) (Credentials, error) {
	var c Credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, p.password_hash
		FROM "user" u
		JOIN user_password p ON p.user_id = u.id
		WHERE u.username = ?
	`, CleanUsername(username)).Scan(&c.UserID, &c.Username, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, notFound("identity.Credentials")
	}
	if err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// User returns a user by id.
func (s *SQLiteStore) User(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `SELECT id, username FROM "user" WHERE id = ?`, id).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, notFound("identity.User")
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

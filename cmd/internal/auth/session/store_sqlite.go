package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go).
// expires_at is stored as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS "user" (
	id       TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS session (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_user ON session(user_id);
`

// NewSQLiteStore wraps an open database handle and ensures the session schema exists.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("session: nil db")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Create inserts a new session row.
func (s *SQLiteStore) Create(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id, user_id, expires_at) VALUES (?, ?, ?)`,
		sess.ID, sess.UserID, sess.ExpiresAt.UnixMilli(),
	)
	return err
}

// Lookup loads a session row by hashed id, joined to its user.
func (s *SQLiteStore) Lookup(ctx context.Context, id string) (Session, Subject, error) {
	var (
		sess Session
		subj Subject
		exp  int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.expires_at, u.id, u.username
		FROM session s
		JOIN "user" u ON u.id = s.user_id
		WHERE s.id = ?
	`, id).Scan(&sess.ID, &sess.UserID, &exp, &subj.ID, &subj.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, Subject{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, Subject{}, err
	}

	sess.ExpiresAt = time.UnixMilli(exp).UTC()
	return sess, subj, nil
}

// Extend updates expires_at for a session. A missing row is ErrSessionNotFound.
func (s *SQLiteStore) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE session SET expires_at = ? WHERE id = ?`,
		expiresAt.UnixMilli(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session row (idempotent).
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, id)
	return err
}

package session

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (<schema>.session joined to <schema>."user").
//
// Schema is managed outside the process:
//
//	CREATE TABLE session (
//	    id         text PRIMARY KEY,
//	    user_id    text NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
//	    expires_at timestamptz NOT NULL
//	);
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "beer").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRE.MatchString(schema) {
			return errors.New("session: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, schema: "beer"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.pool == nil {
		return nil, errors.New("session: nil pool")
	}
	return s, nil
}

// Create inserts a new session row.
func (s *PostgresStore) Create(ctx context.Context, sess Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table("session")+` (id, user_id, expires_at) VALUES ($1, $2, $3)`,
		sess.ID, sess.UserID, sess.ExpiresAt,
	)
	return err
}

// Lookup loads a session row by hashed id, joined to its user.
func (s *PostgresStore) Lookup(ctx context.Context, id string) (Session, Subject, error) {
	var (
		sess Session
		subj Subject
	)

	err := s.pool.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.expires_at, u.id, u.username
		FROM `+s.table("session")+` s
		JOIN `+s.table("user")+` u ON u.id = s.user_id
		WHERE s.id = $1
	`, id).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.ExpiresAt,
		&subj.ID,
		&subj.Username,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, Subject{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, Subject{}, err
	}

	sess.ExpiresAt = sess.ExpiresAt.UTC()
	return sess, subj, nil
}

// Extend updates expires_at for a session. A missing row is ErrSessionNotFound.
func (s *PostgresStore) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.table("session")+` SET expires_at = $2 WHERE id = $1`,
		id, expiresAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session row (idempotent).
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table("session")+` WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) table(name string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{s.schema, name}.Sanitize()
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

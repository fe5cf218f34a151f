package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// Integration tests are enabled when BEER_DATABASE_URL is set.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresSession_IssueValidateRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbURL := os.Getenv("BEER_DATABASE_URL")
	if dbURL == "" {
		t.Skip("BEER_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustPGXPool(ctx, t, dbURL)
	defer pool.Close()

	for _, ddl := range []string{
		`CREATE SCHEMA IF NOT EXISTS beer`,
		`CREATE TABLE IF NOT EXISTS beer."user" (id text PRIMARY KEY, username text NOT NULL UNIQUE)`,
		`CREATE TABLE IF NOT EXISTS beer.session (
			id text PRIMARY KEY,
			user_id text NOT NULL REFERENCES beer."user"(id) ON DELETE CASCADE,
			expires_at timestamptz NOT NULL
		)`,
	} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	svc := NewService(DefaultConfig(), store, testCodec())

	userID := ulid.Make().String()
	if _, err := pool.Exec(ctx, `INSERT INTO beer."user" (id, username) VALUES ($1, $2)`, userID, "it-"+userID); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM beer.session WHERE user_id = $1`, userID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM beer."user" WHERE id = $1`, userID)
	})

	now := time.Now().UTC().Truncate(time.Microsecond)
	issued, err := svc.Issue(ctx, now, userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	v, err := svc.Validate(ctx, now.Add(20*24*time.Hour), issued.Secret)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !v.Renewed || v.Subject.ID != userID {
		t.Fatalf("expected renewed session for %q, got %+v", userID, v)
	}

	if err := svc.Revoke(ctx, issued.Session.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := store.Extend(ctx, issued.Session.ID, now.Add(time.Hour)); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Extend of revoked row: expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Revoke(ctx, issued.Session.ID); err != nil {
		t.Fatalf("Revoke twice: %v", err)
	}
	if _, err := svc.Validate(ctx, now, issued.Secret); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revoke, got %v", err)
	}
}

func mustPGXPool(ctx context.Context, t *testing.T, dbURL string) *pgxpool.Pool {
	t.Helper()

	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pool, err := pgxpool.New(cctx, dbURL)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		if os.Getenv("CI") != "" {
			t.Fatalf("postgres ping failed in CI: %v", err)
		}
		t.Skipf("postgres unreachable: %v", err)
	}
	return pool
}

package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"beer/cmd/identity"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
// It does not migrate; see MigratePostgres.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// MigratePostgres creates the schema, identity, session and event tables
// when missing. Production schemas are owned by the web app; this is for
// fresh dev and CI databases (BEER_DB_AUTO_MIGRATE).
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, users *identity.PostgresStore, schema string) error {
	if err := users.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("migrate identity: %w", err)
	}

	ident := func(name string) string { return pgx.Identifier{schema, name}.Sanitize() }
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + ident("session") + ` (
			id         text PRIMARY KEY,
			user_id    text NOT NULL REFERENCES ` + ident("user") + `(id) ON DELETE CASCADE,
			expires_at timestamptz NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS session_user_id_idx ON ` + ident("session") + ` (user_id)`,
		`CREATE TABLE IF NOT EXISTS ` + ident("event") + ` (
			id         text PRIMARY KEY,
			name       text NOT NULL,
			color      text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, q := range stmts {
		if _, err := pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// OpenSQLite opens (or creates) the database file with foreign keys on and
// WAL journaling.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

package event

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS event (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// SQLiteDirectory looks events up in the SQLite event table.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory wraps db and ensures the event table exists.
func NewSQLiteDirectory(ctx context.Context, db *sql.DB) (*SQLiteDirectory, error) {
	if db == nil {
		return nil, errors.New("event: nil db")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, err
	}
	return &SQLiteDirectory{db: db}, nil
}

// Create inserts an event row. Event management is owned by the web app;
// this exists for seeding dev databases and tests.
func (d *SQLiteDirectory) Create(ctx context.Context, id, name, color string, now time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO event (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		id, name, color, now.Unix(),
	)
	return err
}

// Lookup checks that the event exists.
func (d *SQLiteDirectory) Lookup(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrNotFound
	}

	var out string
	err := d.db.QueryRowContext(ctx, `SELECT id FROM event WHERE id = ?`, id).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

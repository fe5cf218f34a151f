package app

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"beer/cmd/identity"
	"beer/cmd/internal/auth/session"
	"beer/cmd/internal/event"
)

// Backends is the set of collaborators the HTTP surface runs on.
//
// Selection: BEER_DATABASE_URL picks Postgres for users, sessions and events;
// otherwise BEER_SQLITE_PATH picks SQLite; otherwise everything lives in
// process memory. BEER_REDIS_URL moves session rows to Redis on any of them.
type Backends struct {
	Kind string

	Users    identity.Store
	Sessions session.Store
	Events   event.Directory

	pool   *pgxpool.Pool
	sqlite *sql.DB
	redis  *redis.Client
}

// OpenBackends opens the configured stores. Callers own Close.
func OpenBackends(ctx context.Context, cfg Config, log Logger) (*Backends, error) {
	b := &Backends{}
	var err error

	switch {
	case cfg.DatabaseURL != "":
		err = b.openPostgres(ctx, cfg)
	case cfg.SQLitePath != "":
		err = b.openSQLite(ctx, cfg)
	default:
		b.openMemory(cfg)
	}
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	if cfg.RedisURL != "" {
		rdb, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.redis = rdb
		b.Sessions = session.NewRedisStore(rdb, "", subjectResolver(b.Users))
	}

	log.Info("backends.open", "kind", b.Kind, "redis_sessions", b.redis != nil)
	return b, nil
}

func (b *Backends) openPostgres(ctx context.Context, cfg Config) error {
	b.Kind = "postgres"

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	b.pool = pool

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		return err
	}
	sessions, err := session.NewPostgresStore(pool, session.WithSchema(cfg.DBSchema))
	if err != nil {
		return err
	}
	events, err := event.NewPostgresDirectory(pool, event.WithSchema(cfg.DBSchema))
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := MigratePostgres(ctx, pool, users, cfg.DBSchema); err != nil {
			return err
		}
	}

	b.Users, b.Sessions, b.Events = users, sessions, events
	return nil
}

func (b *Backends) openSQLite(ctx context.Context, cfg Config) error {
	b.Kind = "sqlite"

	db, err := OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return err
	}
	b.sqlite = db

	// Identity first: it owns the full user table definition.
	users, err := identity.NewSQLiteStore(ctx, db)
	if err != nil {
		return err
	}
	sessions, err := session.NewSQLiteStore(ctx, db)
	if err != nil {
		return err
	}
	events, err := event.NewSQLiteDirectory(ctx, db)
	if err != nil {
		return err
	}
	if err := seedSQLiteEvents(ctx, events, cfg.DevEvents); err != nil {
		return err
	}

	b.Users, b.Sessions, b.Events = users, sessions, events
	return nil
}

func (b *Backends) openMemory(cfg Config) {
	b.Kind = "memory"

	users := identity.NewMemoryStore()
	sessions := session.NewMemoryStore()
	sessions.SetResolver(subjectResolver(users))

	b.Users, b.Sessions = users, sessions
	if slices.Contains(cfg.DevEvents, "*") {
		b.Events = event.AnyDirectory{}
	} else {
		b.Events = event.NewMemoryDirectory(cfg.DevEvents...)
	}
}

// Ready reports whether the stores answer.
func (b *Backends) Ready(ctx context.Context) error {
	if b.pool != nil {
		if err := PingDB(ctx, b.pool, 2*time.Second); err != nil {
			return err
		}
	}
	if b.sqlite != nil {
		if err := b.sqlite.PingContext(ctx); err != nil {
			return err
		}
	}
	if b.redis != nil {
		if err := b.redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Persistent reports whether a database backs the stores.
func (b *Backends) Persistent() bool { return b.pool != nil || b.sqlite != nil }

// Close releases every opened handle.
func (b *Backends) Close() error {
	var errs []error
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.sqlite != nil {
		errs = append(errs, b.sqlite.Close())
	}
	if b.pool != nil {
		b.pool.Close()
	}
	return errors.Join(errs...)
}

func subjectResolver(users identity.Store) session.SubjectResolver {
	return func(ctx context.Context, userID string) (session.Subject, error) {
		u, err := users.User(ctx, userID)
		if err != nil {
			if identity.IsNotFound(err) {
				return session.Subject{}, session.ErrSessionNotFound
			}
			return session.Subject{}, err
		}
		return session.Subject{ID: u.ID, Username: u.Username}, nil
	}
}

func seedSQLiteEvents(ctx context.Context, dir *event.SQLiteDirectory, ids []string) error {
	now := time.Now().UTC()
	for _, id := range ids {
		if id == "*" {
			continue
		}
		_, err := dir.Lookup(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, event.ErrNotFound) {
			return err
		}
		if err := dir.Create(ctx, id, id, "#f5a623", now); err != nil {
			return err
		}
	}
	return nil
}

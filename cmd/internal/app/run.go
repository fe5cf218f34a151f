package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"beer/cmd/identity"
	"beer/cmd/security/password"
)

// Serve is the `beer serve` entrypoint.
// It returns an error instead of calling os.Exit to keep defers effective.
func Serve(cfg Config) error {
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// AddUser creates a login on the configured database. It is the `beer
// useradd` entrypoint; the web app's registration flow writes the same rows.
func AddUser(ctx context.Context, cfg Config, log Logger, username, plain string) (identity.User, error) {
	pwCfg, err := password.FromEnv()
	if err != nil {
		return identity.User{}, err
	}

	stores, err := OpenBackends(ctx, cfg, log)
	if err != nil {
		return identity.User{}, err
	}
	defer func() { _ = stores.Close() }()

	if !stores.Persistent() {
		return identity.User{}, errors.New("useradd: no database configured (set BEER_DATABASE_URL or BEER_SQLITE_PATH)")
	}

	hash, err := pwCfg.Hash(plain)
	if err != nil {
		return identity.User{}, err
	}
	u, err := stores.Users.CreateUser(ctx, identity.CreateUserInput{
		Username:     username,
		PasswordHash: hash,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		return identity.User{}, err
	}

	log.Info("identity.user.created", "user_id", u.ID, "username", u.Username, "backend", stores.Kind)
	return u, nil
}

package session

import (
	"os"
	"strconv"
	"time"

	"beer/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// TTL is the lifetime of a freshly issued or renewed session.
	TTL time.Duration

	// RenewWindow is the remaining lifetime below which a validated session is renewed.
	RenewWindow time.Duration

	// SecretBytes is the number of random bytes in a session secret.
	SecretBytes int

	// MaxSecretLen bounds presented secrets to avoid pathological inputs.
	MaxSecretLen int
}

// DefaultConfig returns the production defaults: 30 day sessions renewed in their last 15 days.
func DefaultConfig() Config {
	return Config{
		TTL:          30 * 24 * time.Hour,
		RenewWindow:  15 * 24 * time.Hour,
		SecretBytes:  token.DefaultSecretBytes,
		MaxSecretLen: 4096,
	}
}

// Validate checks config invariants.
func (c Config) Validate() error {
	if c.TTL <= 0 || c.RenewWindow <= 0 || c.RenewWindow > c.TTL {
		return ErrConfig
	}
	if c.SecretBytes < token.MinSecretBytes || c.SecretBytes > 64 {
		return ErrConfig
	}
	if c.MaxSecretLen <= 0 {
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - BEER_SESSION_TTL
//   - BEER_SESSION_RENEW_WINDOW
//   - BEER_SESSION_SECRET_BYTES
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("BEER_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TTL = d
	}

	if v := os.Getenv("BEER_SESSION_RENEW_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RenewWindow = d
	}

	if v := os.Getenv("BEER_SESSION_SECRET_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.SecretBytes = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is bcrypt's input limit.
const MaxBytes = 72

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	// Cost is the bcrypt work factor used by Hash.
	Cost int
	// MaxVerifyCost bounds the cost Verify is willing to spend on a stored hash.
	MaxVerifyCost int
	Policy        Policy
}

// DefaultConfig matches the web app: cost 12, 6..72 characters.
func DefaultConfig() Config {
	return Config{
		Cost:          12,
		MaxVerifyCost: 14,
		Policy: Policy{
			MinLength:      6,
			MaxLength:      MaxBytes,
			RejectVeryWeak: false,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - BEER_PASSWORD_MIN_LEN
// - BEER_PASSWORD_MAX_LEN (capped at 72)
// - BEER_PASSWORD_REJECT_VERY_WEAK (true/false)
// - BEER_BCRYPT_COST
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("BEER_PASSWORD_MIN_LEN"); ok {
		n, err := atoiInRange(v, 1, MaxBytes)
		if err != nil {
			return Config{}, fmt.Errorf("BEER_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("BEER_PASSWORD_MAX_LEN"); ok {
		n, err := atoiInRange(v, 1, MaxBytes)
		if err != nil {
			return Config{}, fmt.Errorf("BEER_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("BEER_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("BEER_PASSWORD_REJECT_VERY_WEAK: %w", err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if v, ok := os.LookupEnv("BEER_BCRYPT_COST"); ok {
		n, err := atoiInRange(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("BEER_BCRYPT_COST: %w", err)
		}
		cfg.Cost = n
		if cfg.MaxVerifyCost < n {
			cfg.MaxVerifyCost = n
		}
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiInRange(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}

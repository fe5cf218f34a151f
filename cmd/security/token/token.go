package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "BEER_TOKEN_HMAC_KEY"

	// DefaultSecretBytes is the entropy of a fresh session secret (144 bits).
	DefaultSecretBytes = 18

	// MinSecretBytes is the entropy floor (128 bits).
	MinSecretBytes = 16

	// MinHMACKeyBytes is the minimum keyed-mode key size.
	MinHMACKeyBytes = 32
)

// Codec hashes session secrets into storage ids and mints new secrets.
// The zero value hashes with plain SHA-256 and mints DefaultSecretBytes secrets.
type Codec struct {
	key         []byte
	secretBytes int
}

// NewCodec constructs a Codec. A nil/empty key selects SHA-256 mode.
func NewCodec(key []byte, secretBytes int) (Codec, error) {
	if secretBytes == 0 {
		secretBytes = DefaultSecretBytes
	}
	if secretBytes < MinSecretBytes {
		return Codec{}, ErrSecretTooShort
	}
	var k []byte
	if len(key) > 0 {
		k = append([]byte(nil), key...)
	}
	return Codec{key: k, secretBytes: secretBytes}, nil
}

// CodecFromEnv builds a Codec from BEER_TOKEN_HMAC_KEY (keyed mode when set).
func CodecFromEnv(secretBytes int) (Codec, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	return NewCodec([]byte(raw), secretBytes)
}

// Keyed reports whether the codec hashes with HMAC.
func (c Codec) Keyed() bool { return len(c.key) > 0 }

// Hash derives the storage id for a secret.
func (c Codec) Hash(secret string) string {
	if len(c.key) == 0 {
		return HashSHA256Hex(secret)
	}
	return HashHMACSHA256Hex(secret, c.key)
}

// NewSecret returns a fresh URL-safe secret drawn from crypto/rand.
func (c Codec) NewSecret() (string, error) {
	n := c.secretBytes
	if n <= 0 {
		n = DefaultSecretBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// URL-safe, no padding.
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// Equal compares two credentials in constant time.
// Empty values never match.
func Equal(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

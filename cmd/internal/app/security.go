package app

import (
	"errors"
	"fmt"
	"strings"

	"beer/cmd/security/token"
)

// minAPIKeyBytes is the floor for the shared trigger secret.
const minAPIKeyBytes = 16

// ValidateSecurityConfig enforces the startup security policy and returns
// the session token codec the rest of the app must use.
//
// Under BEER_REQUIRE_TOKEN_HMAC a missing or short key is fatal rather than a
// silent fallback to plain SHA-256 ids.
func ValidateSecurityConfig(cfg Config, secretBytes int) (token.Codec, error) {
	if cfg.RequireTokenHMAC {
		if _, err := token.HMACKeyFromEnv(token.MinHMACKeyBytes); err != nil {
			switch {
			case errors.Is(err, token.ErrHMACKeyMissing):
				return token.Codec{}, errors.New("security policy: BEER_REQUIRE_TOKEN_HMAC=true but BEER_TOKEN_HMAC_KEY is missing")
			case errors.Is(err, token.ErrHMACKeyTooShort):
				return token.Codec{}, fmt.Errorf("security policy: BEER_REQUIRE_TOKEN_HMAC=true but BEER_TOKEN_HMAC_KEY is too short (min %d bytes)", token.MinHMACKeyBytes)
			default:
				return token.Codec{}, err
			}
		}
	}

	codec, err := token.CodecFromEnv(secretBytes)
	if err != nil {
		return token.Codec{}, err
	}
	if cfg.RequireTokenHMAC && !codec.Keyed() {
		return token.Codec{}, errors.New("security policy: BEER_REQUIRE_TOKEN_HMAC=true but token codec is not in HMAC mode")
	}

	if key := strings.TrimSpace(cfg.APIKey); key != "" && len(key) < minAPIKeyBytes {
		return token.Codec{}, fmt.Errorf("security policy: BEER_API_KEY is too short (min %d bytes)", minAPIKeyBytes)
	}
	return codec, nil
}

// Package token provides the session token codec.
//
// It is the single source of truth for how client-held session secrets are
// generated and how they are turned into storage identifiers.
//
// Design goals:
// - Default mode: SHA-256(secret), lowercase hex.
// - Keyed mode: HMAC-SHA256(secret, key) when a server key is configured.
// - Stable 64-char hex output for storage and constant-time comparison.
//
// Environment:
// - BEER_TOKEN_HMAC_KEY: when set, enables keyed mode.
package token

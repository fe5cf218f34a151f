// Package password provides password hashing and verification utilities for beer.
//
// Hashes are bcrypt (golang.org/x/crypto/bcrypt), compatible with the hashes
// already stored by the web app. The package includes:
// - Configurable bcrypt cost (via environment variables)
// - Password policy validation
// - Strict hash checking with an upper bound on cost during Verify
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify.
// - bcrypt only reads the first 72 bytes; longer passwords are rejected up front.
package password

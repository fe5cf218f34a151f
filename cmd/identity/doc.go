// Package identity holds the user and credential records that login and
// session lookups resolve against.
//
// It owns the "user" and user_password tables. Password hashing itself lives in
// cmd/security/password; this package only stores and returns the hash.
package identity

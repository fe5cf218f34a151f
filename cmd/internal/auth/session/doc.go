// Package session implements the session lifecycle for the web UI.
//
// A session is identified by the SHA-256 (or HMAC-SHA256) hex digest of an
// opaque client-held secret; the secret itself is never persisted. Sessions
// live for 30 days and are renewed on read once less than 15 days remain.
// Expired rows are deleted lazily when they are presented.
//
// The Service holds no cache: the Store is the single source of truth and
// every call is one read plus at most one write against it.
//
// Transport (cookies/HTTP) integration lives in the auth api package.
package session

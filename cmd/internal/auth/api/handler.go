package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"beer/cmd/identity"
	"beer/cmd/internal/auth/session"
	"beer/cmd/security/password"
)

// maxPasswordLen matches the web app's login form validation.
const maxPasswordLen = 255

// Handler wires the session cookie and the login/logout endpoints to the
// session service and the credential store.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions  *session.Service
	users     identity.Store
	passwords password.Config
	failures  *failureLog

	dummyHash string
	now       func() time.Time
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, users identity.Store, passwords password.Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}
	if users == nil {
		return nil, errors.New("authapi: nil identity store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Handler{
		log:       log,
		cfg:       cfg,
		sessions:  sessions,
		users:     users,
		passwords: passwords,
		failures:  newFailureLog(cfg.LoginFailWindow),
		now:       func() time.Time { return time.Now().UTC() },
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := (password.Config{Cost: passwords.Cost, Policy: password.Policy{MinLength: 1, MaxLength: password.MaxBytes}}).Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
// Routes expect Middleware to wrap the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.Handle("POST /auth/logout", h.RequireSession(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /me", h.RequireSession(http.HandlerFunc(h.handleMe)))
}

// Middleware resolves the session cookie on every request.
//
// A valid session is stored in the request context and its cookie re-sent
// with the current expiry. An unknown or expired one has its cookie deleted.
// A store failure ends the request with 500.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret, ok := h.sessionSecretFromCookie(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		v, err := h.sessions.Validate(r.Context(), h.now(), secret)
		switch {
		case err == nil:
			h.setSessionCookie(w, secret, v.Session.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), v)))
		case errors.Is(err, session.ErrSessionNotFound):
			h.expireSessionCookie(w)
			next.ServeHTTP(w, r)
		default:
			h.log.Error("auth.session.validate.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
	})
}

// RequireSession rejects requests the middleware found no session for.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := identity.CleanUsername(req.Username)
	if !identity.ValidUsername(username) {
		writeError(w, http.StatusBadRequest, "invalid_username", "username must be 3-255 letters or digits")
		return
	}
	if req.Password == "" || len(req.Password) > maxPasswordLen {
		writeError(w, http.StatusBadRequest, "invalid_password", "password must be 1-255 characters")
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)

	if h.throttled(ctx, w, username, ip, now) {
		return
	}

	creds, err := h.users.Credentials(ctx, username)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.login.lookup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		// Timing resistance: perform a dummy verify when user is missing.
		if h.dummyHash != "" {
			_, _ = h.passwords.Verify(h.dummyHash, req.Password)
		}
		h.loginFailed(ctx, username, ip, now, "not_found")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	ok, err := h.passwords.Verify(creds.PasswordHash, req.Password)
	if err != nil || !ok {
		reason := "bad_password"
		if err != nil {
			reason = "bad_hash"
		}
		h.loginFailed(ctx, username, ip, now, reason)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	issued, err := h.sessions.Issue(ctx, now, creds.UserID)
	if err != nil {
		h.log.Error("auth.login.issue_session.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.failures.reset(userKey(username))
	h.auditLoginSuccess(ctx, creds.UserID, issued.Session.ID, ip)

	h.setSessionCookie(w, issued.Secret, issued.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, toSessionResponse(issued.Session, session.Subject{ID: creds.UserID, Username: creds.Username}))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	v, _ := SessionFrom(r.Context())

	if err := h.sessions.Revoke(r.Context(), v.Session.ID); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLogout(r.Context(), v.Subject.ID, v.Session.ID, clientIP(r, h.cfg.TrustProxy))
	h.expireSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	v, _ := SessionFrom(r.Context())
	writeJSON(w, http.StatusOK, toSessionResponse(v.Session, v.Subject))
}

// throttled writes 429 and returns true when ip or username is over budget.
func (h *Handler) throttled(ctx context.Context, w http.ResponseWriter, username string, ip net.IP, now time.Time) bool {
	blocked, retry := h.failures.blocked(ipKey(ip), now, h.cfg.LoginIPMax)
	if !blocked {
		blocked, retry = h.failures.blocked(userKey(username), now, h.cfg.LoginUserMax)
	}
	if !blocked {
		return false
	}
	h.auditLoginRateLimited(ctx, username, ip)
	writeRateLimited(w, retry)
	return true
}

func (h *Handler) loginFailed(ctx context.Context, username string, ip net.IP, now time.Time, reason string) {
	h.failures.record(ipKey(ip), now)
	h.failures.record(userKey(username), now)
	h.auditLoginFailed(ctx, username, ip, reason)
}

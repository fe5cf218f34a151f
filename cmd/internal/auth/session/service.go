package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"beer/cmd/security/token"
)

// Service implements the session lifecycle: issue, validate (with sliding
// renewal and lazy expiry) and revoke.
type Service struct {
	cfg     Config
	codec   token.Codec
	store   Store
	log     *slog.Logger
	metrics *Metrics
}

// Issued is the result of issuing a session.
// Secret is the raw bearer credential; it must be handed to the client and never stored.
type Issued struct {
	Secret  string
	Session Session
}

// Validated is a live session joined with its subject.
type Validated struct {
	Session Session
	Subject Subject
	Renewed bool
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a Service with the provided configuration, store, and codec.
func NewService(cfg Config, store Store, codec token.Codec, opts ...Option) *Service {
	s := &Service{cfg: cfg, codec: codec, store: store, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Issue creates a new session for userID and returns the raw secret.
func (s *Service) Issue(ctx context.Context, now time.Time, userID string) (Issued, error) {
	secret, err := s.codec.NewSecret()
	if err != nil {
		return Issued{}, err
	}

	sess := Session{
		ID:        s.codec.Hash(secret),
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.TTL).UTC(),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return Issued{}, storeErr("create", err)
	}

	s.metrics.incIssued()
	return Issued{Secret: secret, Session: sess}, nil
}

// Validate resolves a presented secret to a live session.
//
// Expired sessions are deleted and reported as ErrSessionNotFound. Sessions
// with less than RenewWindow left are extended to now+TTL before returning.
func (s *Service) Validate(ctx context.Context, now time.Time, secret string) (Validated, error) {
	// The secret is hashed exactly as presented.
	if secret == "" || len(secret) > s.cfg.MaxSecretLen {
		s.metrics.observeValidation(outcomeAbsent)
		return Validated{}, ErrSessionNotFound
	}

	id := s.codec.Hash(secret)

	sess, subj, err := s.store.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.metrics.observeValidation(outcomeAbsent)
			return Validated{}, ErrSessionNotFound
		}
		s.metrics.observeValidation(outcomeError)
		return Validated{}, storeErr("lookup", err)
	}

	if !sess.ExpiresAt.After(now) {
		if err := s.store.Delete(ctx, sess.ID); err != nil {
			s.metrics.observeValidation(outcomeError)
			return Validated{}, storeErr("delete", err)
		}
		s.metrics.observeValidation(outcomeExpired)
		s.log.Debug("session.validate.expired", "user_id", sess.UserID)
		return Validated{}, ErrSessionNotFound
	}

	if sess.ExpiresAt.Sub(now) < s.cfg.RenewWindow {
		exp := now.Add(s.cfg.TTL).UTC()
		if err := s.store.Extend(ctx, sess.ID, exp); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				// Revoked between Lookup and Extend.
				s.metrics.observeValidation(outcomeAbsent)
				return Validated{}, ErrSessionNotFound
			}
			s.metrics.observeValidation(outcomeError)
			return Validated{}, storeErr("extend", err)
		}
		sess.ExpiresAt = exp
		s.metrics.observeValidation(outcomeRenewed)
		s.log.Debug("session.validate.renewed", "user_id", sess.UserID, "expires_at", exp)
		return Validated{Session: sess, Subject: subj, Renewed: true}, nil
	}

	s.metrics.observeValidation(outcomeValid)
	return Validated{Session: sess, Subject: subj}, nil
}

// Revoke deletes a session by id. Revoking an absent session is not an error.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return storeErr("delete", err)
	}
	s.metrics.incRevoked()
	return nil
}

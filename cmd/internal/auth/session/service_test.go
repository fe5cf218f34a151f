package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"beer/cmd/security/token"
)

const day = 24 * time.Hour

// countingStore records the number of reads and writes that reach the backend.
type countingStore struct {
	Store
	reads  atomic.Int32
	writes atomic.Int32
}

func (c *countingStore) Create(ctx context.Context, s Session) error {
	c.writes.Add(1)
	return c.Store.Create(ctx, s)
}

func (c *countingStore) Lookup(ctx context.Context, id string) (Session, Subject, error) {
	c.reads.Add(1)
	return c.Store.Lookup(ctx, id)
}

func (c *countingStore) Extend(ctx context.Context, id string, exp time.Time) error {
	c.writes.Add(1)
	return c.Store.Extend(ctx, id, exp)
}

func (c *countingStore) Delete(ctx context.Context, id string) error {
	c.writes.Add(1)
	return c.Store.Delete(ctx, id)
}

func (c *countingStore) reset() {
	c.reads.Store(0)
	c.writes.Store(0)
}

type failingStore struct{ err error }

func (f failingStore) Create(context.Context, Session) error { return f.err }
func (f failingStore) Lookup(context.Context, string) (Session, Subject, error) {
	return Session{}, Subject{}, f.err
}
func (f failingStore) Extend(context.Context, string, time.Time) error { return f.err }
func (f failingStore) Delete(context.Context, string) error            { return f.err }

// revokingStore deletes each row right after handing it out, as a concurrent
// Revoke landing between Lookup and Extend would.
type revokingStore struct {
	*MemoryStore
}

func (r revokingStore) Lookup(ctx context.Context, id string) (Session, Subject, error) {
	sess, subj, err := r.MemoryStore.Lookup(ctx, id)
	if err == nil {
		_ = r.MemoryStore.Delete(ctx, id)
	}
	return sess, subj, err
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *countingStore) {
	t.Helper()
	mem := NewMemoryStore()
	mem.PutSubject(Subject{ID: "u1", Username: "ola"})
	cs := &countingStore{Store: mem}
	return NewService(DefaultConfig(), cs, token.Codec{}), mem, cs
}

func TestIssueThenValidate_ReturnsSameSubject(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issued, err := svc.Issue(ctx, now, "u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.Secret == "" || issued.Session.ID == "" {
		t.Fatalf("Issue: expected secret and id")
	}
	if issued.Session.ID == issued.Secret {
		t.Fatalf("session id must be the hash, not the secret")
	}
	if want := now.Add(30 * day); !issued.Session.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt=%v want=%v", issued.Session.ExpiresAt, want)
	}

	got, err := svc.Validate(ctx, now, issued.Secret)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Session.UserID != "u1" || got.Subject.Username != "ola" {
		t.Fatalf("unexpected subject: %+v", got)
	}
	if got.Renewed || !got.Session.ExpiresAt.Equal(issued.Session.ExpiresAt) {
		t.Fatalf("fresh session must not be renewed: %+v", got.Session)
	}
}

func TestValidate_ExpiredSessionIsDeleted(t *testing.T) {
	t.Parallel()

	svc, mem, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issued, err := svc.Issue(ctx, now, "u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for _, at := range []time.Time{issued.Session.ExpiresAt, issued.Session.ExpiresAt.Add(time.Second)} {
		if _, err := svc.Validate(ctx, at, issued.Secret); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("Validate at %v: expected ErrSessionNotFound, got %v", at, err)
		}
		if mem.Len() != 0 {
			t.Fatalf("expected expired row to be deleted")
		}
	}
}

func TestValidate_RenewalBoundary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		remaining time.Duration
		renew     bool
	}{
		{name: "fresh", remaining: 30 * day, renew: false},
		{name: "exactly window", remaining: 15 * day, renew: false},
		{name: "just inside window", remaining: 15*day - time.Second, renew: true},
		{name: "about to expire", remaining: time.Second, renew: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, mem, cs := newTestService(t)
			ctx := context.Background()
			now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			secret := "secret-" + tc.name
			id := token.Codec{}.Hash(secret)
			exp := now.Add(tc.remaining)

			if err := mem.Create(ctx, Session{ID: id, UserID: "u1", ExpiresAt: exp}); err != nil {
				t.Fatalf("Create: %v", err)
			}
			cs.reset()

			got, err := svc.Validate(ctx, now, secret)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if cs.reads.Load() != 1 {
				t.Fatalf("expected exactly one read, got %d", cs.reads.Load())
			}

			stored, _, err := mem.Lookup(ctx, id)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}

			if tc.renew {
				want := now.Add(30 * day)
				if !got.Renewed || !got.Session.ExpiresAt.Equal(want) || !stored.ExpiresAt.Equal(want) {
					t.Fatalf("expected renewal to %v, got returned=%v stored=%v", want, got.Session.ExpiresAt, stored.ExpiresAt)
				}
				if cs.writes.Load() != 1 {
					t.Fatalf("expected one write, got %d", cs.writes.Load())
				}
				return
			}

			if got.Renewed || !stored.ExpiresAt.Equal(exp) {
				t.Fatalf("expected unchanged expiry %v, got %v", exp, stored.ExpiresAt)
			}
			if cs.writes.Load() != 0 {
				t.Fatalf("expected no writes, got %d", cs.writes.Load())
			}
		})
	}
}

func TestValidate_UnknownSecret(t *testing.T) {
	t.Parallel()

	svc, _, cs := newTestService(t)

	if _, err := svc.Validate(context.Background(), time.Now(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if cs.writes.Load() != 0 {
		t.Fatalf("unknown secret must not write")
	}
	if _, err := svc.Validate(context.Background(), time.Now(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for empty secret, got %v", err)
	}
}

func TestValidate_HashesSecretAsPresented(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issued, err := svc.Issue(ctx, now, "u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for _, variant := range []string{" " + issued.Secret, issued.Secret + " ", issued.Secret + "\n"} {
		if _, err := svc.Validate(ctx, now, variant); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("Validate(%q): expected ErrSessionNotFound, got %v", variant, err)
		}
	}
	if _, err := svc.Validate(ctx, now, issued.Secret); err != nil {
		t.Fatalf("exact secret must still validate: %v", err)
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	t.Parallel()

	svc, mem, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Issue(ctx, now, "u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.Revoke(ctx, issued.Session.ID); err != nil {
		t.Fatalf("first Revoke: %v", err)
	}
	if err := svc.Revoke(ctx, issued.Session.ID); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("expected no rows after revoke")
	}
	if _, err := svc.Validate(ctx, now, issued.Secret); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("revoked session must not validate, got %v", err)
	}
}

func TestSessionLifecycleScenario(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	issued, err := svc.Issue(ctx, t0, "u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	v, err := svc.Validate(ctx, t0, issued.Secret)
	if err != nil || !v.Session.ExpiresAt.Equal(t0.Add(30*day)) {
		t.Fatalf("t=0: expected active with original expiry, got %+v err=%v", v.Session, err)
	}

	t20 := t0.Add(20 * day)
	v, err = svc.Validate(ctx, t20, issued.Secret)
	if err != nil || !v.Renewed || !v.Session.ExpiresAt.Equal(t20.Add(30*day)) {
		t.Fatalf("t=20d: expected renewal to t+30d, got %+v err=%v", v.Session, err)
	}

	// A second secret that is never validated after issue dies at the 30 day mark.
	idle, err := svc.Issue(ctx, t0, "u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Validate(ctx, t0.Add(31*day), idle.Secret); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("t=31d without renewal: expected absent, got %v", err)
	}

	// The renewed session is still alive at 31d and dead past its renewed expiry.
	if _, err := svc.Validate(ctx, t0.Add(31*day), issued.Secret); err != nil {
		t.Fatalf("renewed session should be alive at 31d: %v", err)
	}
	if _, err := svc.Validate(ctx, t0.Add(61*day+time.Hour), issued.Secret); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected absent after renewed expiry, got %v", err)
	}
}

func TestStoreFailureIsSurfaced(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	svc := NewService(DefaultConfig(), failingStore{err: boom}, token.Codec{})

	_, err := svc.Validate(context.Background(), time.Now(), "secret")
	if !errors.Is(err, ErrStore) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store failure, got %v", err)
	}
	if errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("store failure must not look like an absent session")
	}

	if _, err := svc.Issue(context.Background(), time.Now(), "u1"); !errors.Is(err, ErrStore) {
		t.Fatalf("expected store failure from Issue, got %v", err)
	}
	if err := svc.Revoke(context.Background(), "id"); !errors.Is(err, ErrStore) {
		t.Fatalf("expected store failure from Revoke, got %v", err)
	}
}

func TestValidate_RevokedBeforeRenewalIsAbsent(t *testing.T) {
	t.Parallel()

	mem := NewMemoryStore()
	mem.PutSubject(Subject{ID: "u1", Username: "ola"})
	svc := NewService(DefaultConfig(), revokingStore{MemoryStore: mem}, token.Codec{})
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	issued, err := svc.Issue(ctx, now, "u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := svc.Validate(ctx, now.Add(20*day), issued.Secret)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %+v err=%v", got, err)
	}
	if errors.Is(err, ErrStore) {
		t.Fatalf("a vanished row is not a store failure: %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("renewal must not resurrect the row")
	}
}

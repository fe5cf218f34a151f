package session

import (
	"context"
	"testing"
	"time"

	"beer/cmd/security/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tj/assert"
)

func testCodec() token.Codec { return token.Codec{} }

func newRedisTestStore(t *testing.T, subjects SubjectResolver) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "test:session", subjects), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	resolver := func(_ context.Context, userID string) (Subject, error) {
		return Subject{ID: userID, Username: "kari"}, nil
	}
	st, mr := newRedisTestStore(t, resolver)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Millisecond).UTC()

	assert.NoError(t, st.Create(ctx, Session{ID: "h1", UserID: "u2", ExpiresAt: exp}))
	assert.True(t, mr.Exists("test:session:h1"))

	sess, subj, err := st.Lookup(ctx, "h1")
	assert.NoError(t, err)
	assert.Equal(t, "u2", sess.UserID)
	assert.Equal(t, "kari", subj.Username)
	assert.True(t, sess.ExpiresAt.Equal(exp))

	later := exp.Add(2 * time.Hour)
	assert.NoError(t, st.Extend(ctx, "h1", later))
	sess, _, err = st.Lookup(ctx, "h1")
	assert.NoError(t, err)
	assert.True(t, sess.ExpiresAt.Equal(later))

	assert.NoError(t, st.Delete(ctx, "h1"))
	assert.NoError(t, st.Delete(ctx, "h1"))
	_, _, err = st.Lookup(ctx, "h1")
	assert.Equal(t, ErrSessionNotFound, err)
}

func TestRedisStore_ExtendMissingKeyStaysAbsent(t *testing.T) {
	st, mr := newRedisTestStore(t, nil)
	ctx := context.Background()

	err := st.Extend(ctx, "ghost", time.Now().Add(time.Hour))
	assert.Equal(t, ErrSessionNotFound, err)
	assert.False(t, mr.Exists("test:session:ghost"))
}

func TestRedisStore_KeyExpiresWithSession(t *testing.T) {
	st, mr := newRedisTestStore(t, nil)
	ctx := context.Background()

	assert.NoError(t, st.Create(ctx, Session{ID: "h2", UserID: "u3", ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, _, err := st.Lookup(ctx, "h2")
	assert.Equal(t, ErrSessionNotFound, err)
}

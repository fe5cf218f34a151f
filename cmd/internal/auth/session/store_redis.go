package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const extendSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("HSET", KEYS[1], "expires_at", ARGV[1])
  redis.call("PEXPIREAT", KEYS[1], ARGV[1])
  return 1
end
return 0
`

var extendSessionLua = redis.NewScript(extendSessionScript)

const (
	fieldUserID    = "user_id"
	fieldExpiresAt = "expires_at"
)

// RedisStore implements Store on Redis hashes keyed by <prefix>:<id>.
//
// Keys carry a PEXPIREAT equal to the session expiry, so Redis reclaims dead
// rows on its own; Lookup of a reclaimed key reports ErrSessionNotFound,
// which is the same outcome as lazy expiry.
type RedisStore struct {
	rdb      redis.UniversalClient
	prefix   string
	subjects SubjectResolver
}

// NewRedisStore constructs a Redis-backed store. subjects may be nil, in
// which case lookups return Subject{ID: userID}.
func NewRedisStore(rdb redis.UniversalClient, prefix string, subjects SubjectResolver) *RedisStore {
	if prefix == "" {
		prefix = "beer:session"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, subjects: subjects}
}

func (s *RedisStore) key(id string) string { return s.prefix + ":" + id }

// Create stores a session hash with an absolute expiry.
func (s *RedisStore) Create(ctx context.Context, sess Session) error {
	key := s.key(sess.ID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldUserID, sess.UserID,
			fieldExpiresAt, strconv.FormatInt(sess.ExpiresAt.UnixMilli(), 10),
		)
		p.PExpireAt(ctx, key, sess.ExpiresAt)
		return nil
	})
	return err
}

// Lookup loads a session hash and resolves its subject.
func (s *RedisStore) Lookup(ctx context.Context, id string) (Session, Subject, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return Session{}, Subject{}, err
	}
	if len(vals) == 0 {
		return Session{}, Subject{}, ErrSessionNotFound
	}

	userID := vals[fieldUserID]
	ms, err := strconv.ParseInt(vals[fieldExpiresAt], 10, 64)
	if userID == "" || err != nil {
		return Session{}, Subject{}, errors.New("session: corrupt redis row")
	}

	sess := Session{ID: id, UserID: userID, ExpiresAt: time.UnixMilli(ms).UTC()}
	subj := Subject{ID: userID}
	if s.subjects != nil {
		subj, err = s.subjects(ctx, userID)
		if err != nil {
			return Session{}, Subject{}, err
		}
	}
	return sess, subj, nil
}

// Extend moves the expiry field and the key deadline together.
// A key that vanished in the meantime is left absent and reported as
// ErrSessionNotFound.
func (s *RedisStore) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	ms := expiresAt.UnixMilli()
	n, err := extendSessionLua.Run(ctx, s.rdb, []string{s.key(id)}, strconv.FormatInt(ms, 10)).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session hash (idempotent).
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix namespaces session entries away from the numeric
// permission-cache keys sharing the same Redis database.
const sessionKeyPrefix = "refresh_token:"

// SessionStore keeps the single currently valid refresh token per
// user. Set is last-writer-wins: two concurrent logins race
// harmlessly to whichever refresh token survives, which is the
// intended single-active-session policy. Logout overwrites the value
// with an empty sentinel instead of deleting the key; the equality
// check on refresh then fails for any previously issued token.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore wraps an existing Redis client handle. A zero ttl
// keeps entries until the next overwrite.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) key(userID uint64) string {
	return sessionKeyPrefix + strconv.FormatUint(userID, 10)
}

// Get returns the refresh token currently stored for a user. A
// missing key yields the empty string and no error, which never
// matches a real token.
func (s *SessionStore) Get(ctx context.Context, userID uint64) (string, error) {
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set overwrites the stored refresh token for a user, invalidating
// any previously issued one.
func (s *SessionStore) Set(ctx context.Context, userID uint64, token string) error {
	return s.client.Set(ctx, s.key(userID), token, s.ttl).Err()
}

// Clear overwrites the entry with the empty sentinel, immediately
// invalidating the outstanding refresh token.
func (s *SessionStore) Clear(ctx context.Context, userID uint64) error {
	return s.Set(ctx, userID, "")
}

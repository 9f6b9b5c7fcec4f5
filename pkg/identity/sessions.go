package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SessionStore keeps sessions in Redis under opaque tokens with a TTL.
// Redis expiry is the only expiry mechanism: a token that outlives its TTL
// simply stops resolving, which callers see as ErrSessionNotFound.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a session store with the given session lifetime
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Create issues a new session for the subject and stores it with the TTL
func (s *SessionStore) Create(ctx context.Context, subjectID, email string) (*Session, error) {
	sess := &Session{
		Token:     uuid.NewString(),
		SubjectID: subjectID,
		Email:     email,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(sess.Token), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return sess, nil
}

// Get returns the session for a token, or ErrSessionNotFound
func (s *SessionStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		// Corrupt entry: drop it and treat the token as unknown
		s.client.Del(ctx, sessionKey(token))
		return nil, ErrSessionNotFound
	}

	return &sess, nil
}

// Delete destroys the session for a token; unknown tokens are a no-op
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

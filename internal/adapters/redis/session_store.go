// Package redis provides Redis-based adapters for the shepherd service.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

const defaultPrefix = "session:"

// SessionStore is a Redis-based session store for production use.
// Each session key expires at the session's ExpiresAt. A per-user set of
// session ids lets all of a user's sessions be dropped at once.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, defaultPrefix)
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix, now: time.Now}
}

func (s *SessionStore) sessionKey(id string) string { return s.prefix + id }
func (s *SessionStore) userKey(uid string) string   { return s.prefix + "user:" + uid }

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(sess.ID), data, ttl)
	if sess.UserID != "" {
		idx := s.userKey(sess.UserID)
		pipe.SAdd(ctx, idx, sess.ID)
		// The index only needs to outlive the longest session it points at.
		pipe.Expire(ctx, idx, domainauth.SessionWindow)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal(data, &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// Key TTL and ExpiresAt can disagree by clock skew between hosts.
	if sess.Expired(s.now()) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}
	return s.client.Del(ctx, s.sessionKey(id)).Err()
}

// DeleteByUser removes every session recorded for uid and returns how many
// session keys were deleted.
func (s *SessionStore) DeleteByUser(ctx context.Context, uid string) (int, error) {
	if uid == "" {
		return 0, nil
	}
	idx := s.userKey(uid)
	ids, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, fmt.Errorf("redis list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.sessionKey(id))
	}
	var deleted int64
	if len(keys) > 0 {
		deleted, err = s.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("redis delete user sessions: %w", err)
		}
	}
	if err := s.client.Del(ctx, idx).Err(); err != nil {
		return int(deleted), fmt.Errorf("redis delete session index: %w", err)
	}
	return int(deleted), nil
}

// ErrNotFound is returned when a session is not found.
type notFoundError struct{}

func (notFoundError) Error() string { return "session not found" }

var ErrNotFound error = notFoundError{}

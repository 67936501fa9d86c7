package redis

import (
	"context"
	"sync"
	"time"

	"quizbank-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - It keeps a local in-memory map of sessions so answer recording stays an
//     in-process operation with the idempotence guard intact.
//   - Redis marks session liveness with a TTL key, which lets operators see
//     active attempts and could be extended to share session snapshots across
//     instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(key string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(key), session.User(), s.ttl).Err()
}

func (s *SessionStore) Get(key string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

func (s *SessionStore) key(sessionKey string) string {
	return "quiz:session:" + sessionKey
}

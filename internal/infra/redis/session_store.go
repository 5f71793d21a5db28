package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizlive/internal/engine"
)

// SessionStore is a Redis-aware implementation of engine.SessionRepository.
// Notes:
//   - Sessions stay in a local in-process map because the state machine,
//     its timers and the broadcast hub live in this process.
//   - Redis marks session liveness so that other instances (or an ops
//     dashboard) can see which session ids are active, and could be extended
//     to route cross-instance pub/sub.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*engine.Session),
	}
}

func (s *SessionStore) Add(session *engine.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID), session.QuizID, s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*engine.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) DeleteIfIdle(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if session.IsEmpty() {
		delete(s.sessions, sessionID)
		_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}

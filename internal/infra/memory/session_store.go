package memory

import (
	"sync"

	"quizlive/internal/engine"
)

// SessionStore is an in-memory implementation of engine.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*engine.Session),
	}
}

func (s *SessionStore) Add(session *engine.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
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
	}
}

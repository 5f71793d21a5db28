package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizlive/internal/domain"
)

// SessionRepository abstracts how live sessions are tracked (in-memory,
// Redis-backed liveness, etc).
type SessionRepository interface {
	Add(session *Session)
	Get(sessionID string) (*Session, bool)
	DeleteIfIdle(sessionID string)
}

// Service exposes the engine use cases to transports: session lifecycle,
// participant intents and observation.
type Service struct {
	sessions SessionRepository
	content  ContentStore
	cfg      Config
	clock    clockwork.Clock
	log      zerolog.Logger
}

func NewService(sessions SessionRepository, content ContentStore, cfg Config, clock clockwork.Clock, logger zerolog.Logger) *Service {
	return &Service{
		sessions: sessions,
		content:  content,
		cfg:      cfg.withDefaults(),
		clock:    clock,
		log:      logger,
	}
}

// CreateSession starts a new run of the given quiz. The quiz must exist; its
// id and the session id are otherwise opaque to the engine. The first
// participant to join the fresh lobby becomes the host.
func (s *Service) CreateSession(ctx context.Context, quizID string) (domain.StateSnapshot, error) {
	if _, err := s.content.GetQuiz(ctx, quizID); err != nil {
		return domain.StateSnapshot{}, err
	}

	session := NewSession(uuid.NewString(), quizID, s.content, s.cfg, s.clock, s.log)
	s.sessions.Add(session)
	s.log.Info().Str("session_id", session.ID).Str("quiz_id", quizID).Msg("session created")
	return session.Snapshot(), nil
}

// Join registers a participant in an existing session.
func (s *Service) Join(_ context.Context, sessionID, userID, displayName string) (domain.StateSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.StateSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Join(userID, displayName)
}

// Leave detaches a participant and drops the session once it is idle.
func (s *Service) Leave(_ context.Context, sessionID, userID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Leave(userID)
	if session.IsEmpty() {
		s.sessions.DeleteIfIdle(sessionID)
	}
}

// Start begins the countdown (host only).
func (s *Service) Start(ctx context.Context, sessionID, userID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Start(ctx, userID)
}

// Skip cuts the current countdown or reveal dwell short (host only).
func (s *Service) Skip(ctx context.Context, sessionID, userID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Skip(ctx, userID)
}

// Abort terminates the session early (host only).
func (s *Service) Abort(_ context.Context, sessionID, userID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Abort(userID)
}

// SubmitAnswer records an answer for the current question.
func (s *Service) SubmitAnswer(_ context.Context, sessionID, userID string, questionIndex, option int) (domain.AnswerAck, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerAck{}, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(userID, questionIndex, option)
}

// Subscribe returns a channel of session events, snapshot first. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *Service) Subscribe(_ context.Context, sessionID string) (<-chan domain.Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Snapshot returns the full current state of a session.
func (s *Service) Snapshot(_ context.Context, sessionID string) (domain.StateSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.StateSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

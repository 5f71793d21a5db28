package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizlive/internal/domain"
)

// ContentStore loads quiz content from the authoring/store layer. It must be
// reachable before a question can be entered.
type ContentStore interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Config carries the tunable timing and policy knobs of a session.
type Config struct {
	Countdown       time.Duration
	RevealDwell     time.Duration
	MinParticipants int
	AllowLateJoin   bool
	Scoring         ScoringPolicy
}

// DefaultConfig mirrors the timings of the original live quiz UI: a five
// second lobby countdown and a five second reveal dwell.
func DefaultConfig() Config {
	return Config{
		Countdown:       5 * time.Second,
		RevealDwell:     5 * time.Second,
		MinParticipants: 2,
		Scoring:         DefaultScoringPolicy(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Countdown <= 0 {
		c.Countdown = d.Countdown
	}
	if c.RevealDwell <= 0 {
		c.RevealDwell = d.RevealDwell
	}
	if c.MinParticipants <= 0 {
		c.MinParticipants = d.MinParticipants
	}
	if c.Scoring.DecayFraction == 0 {
		c.Scoring = d.Scoring
	}
	return c
}

const contentFetchTimeout = 5 * time.Second

// Session drives one quiz run from lobby through countdown, questions,
// reveals and final results. All mutating operations serialize through one
// mutex; deadline expiries are delivered by timer goroutines into the same
// critical section, so a racing submission and an expiry are arbitrated in
// one place. Timer generations (epochs) make re-delivered expiries no-ops.
type Session struct {
	ID     string
	QuizID string

	store ContentStore
	cfg   Config
	clock clockwork.Clock
	log   zerolog.Logger

	mu            sync.Mutex
	phase         domain.Phase
	questionIndex int
	question      domain.Question
	totalQs       int
	startedAt     time.Time // current question entry time
	deadline      time.Time
	epoch         int
	reg           *registry
	subscribers   map[chan domain.Event]struct{}
	done          chan struct{}
}

// NewSession creates a session in the lobby phase. The first participant to
// join becomes the host.
func NewSession(id, quizID string, store ContentStore, cfg Config, clock clockwork.Clock, logger zerolog.Logger) *Session {
	return &Session{
		ID:            id,
		QuizID:        quizID,
		store:         store,
		cfg:           cfg.withDefaults(),
		clock:         clock,
		log:           logger.With().Str("session_id", id).Str("quiz_id", quizID).Logger(),
		phase:         domain.PhaseLobby,
		questionIndex: -1,
		reg:           newRegistry(),
		subscribers:   make(map[chan domain.Event]struct{}),
		done:          make(chan struct{}),
	}
}

// Join registers a participant. Joins are accepted in the lobby, and during
// an active question when late join is enabled; a re-join after a drop
// preserves the accumulated score.
func (s *Session) Join(id, displayName string) (domain.StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseLobby:
	case domain.PhaseQuestion:
		if !s.cfg.AllowLateJoin {
			return domain.StateSnapshot{}, domain.ErrPhaseNotActive
		}
	default:
		return domain.StateSnapshot{}, domain.ErrPhaseNotActive
	}

	p := domain.Participant{
		ID:          id,
		DisplayName: displayName,
		Host:        len(s.reg.participants) == 0,
		JoinedAt:    s.clock.Now(),
	}
	state, err := s.reg.register(p)
	if err != nil {
		return domain.StateSnapshot{}, err
	}

	s.log.Info().Str("participant_id", id).Bool("host", state.Host).Msg("participant joined")
	participant := state.Participant
	s.broadcastLocked(domain.Event{
		Type:        domain.EventParticipantJoined,
		Participant: &participant,
	})
	return s.snapshotLocked(), nil
}

// Leave detaches a participant. Their score and answer records remain valid.
func (s *Session) Leave(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.reg.remove(id)
	if !ok {
		return
	}
	s.log.Info().Str("participant_id", id).Msg("participant left")
	participant := state.Participant
	s.broadcastLocked(domain.Event{
		Type:        domain.EventParticipantLeft,
		Participant: &participant,
	})

	// Everyone remaining may now have answered.
	if s.phase == domain.PhaseQuestion && s.reg.allAnswered(s.questionIndex) {
		s.revealLocked()
	}
}

// Start moves the session from lobby to countdown. Host only; requires the
// minimum participant count and loadable quiz content.
func (s *Session) Start(ctx context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(participantID); err != nil {
		return err
	}
	if s.phase != domain.PhaseLobby {
		return domain.ErrPhaseNotActive
	}
	if s.reg.connectedCount() < s.cfg.MinParticipants {
		return domain.ErrInsufficientParticipants
	}

	quiz, err := s.store.GetQuiz(ctx, s.QuizID)
	if err != nil {
		return errors.Join(domain.ErrContentUnavailable, err)
	}
	if err := quiz.Validate(); err != nil {
		return errors.Join(domain.ErrContentUnavailable, err)
	}
	s.totalQs = len(quiz.Questions)

	s.phase = domain.PhaseCountdown
	s.deadline = s.clock.Now().Add(s.cfg.Countdown)
	s.scheduleLocked(s.cfg.Countdown)
	s.log.Info().Int("participants", s.reg.connectedCount()).Int("questions", s.totalQs).Msg("session started")
	s.broadcastLocked(domain.Event{
		Type:       domain.EventPhaseChanged,
		DeadlineMs: s.cfg.Countdown.Milliseconds(),
	})
	return nil
}

// Skip lets the host cut a countdown or reveal dwell short. It is delivered
// as a synthetic deadline expiry, so pending answer records stay valid.
func (s *Session) Skip(ctx context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(participantID); err != nil {
		return err
	}
	if s.phase != domain.PhaseCountdown && s.phase != domain.PhaseReveal {
		return domain.ErrPhaseNotActive
	}
	s.epoch++ // invalidate the pending timer
	return s.expireLocked(ctx)
}

// Abort terminates the session early in a clearly flagged state.
func (s *Session) Abort(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(participantID); err != nil {
		return err
	}
	if s.phase.Terminal() {
		return domain.ErrPhaseNotActive
	}
	s.abortLocked("aborted by host")
	return nil
}

// SubmitAnswer records one participant's answer for the current question.
// The first accepted submission per (participant, question) wins; the mutex
// arbitrates racing submissions and the deadline expiry, so a submission
// accepted exactly at the deadline instant is on time.
func (s *Session) SubmitAnswer(participantID string, questionIndex, option int) (domain.AnswerAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseQuestion || questionIndex != s.questionIndex {
		return domain.AnswerAck{}, domain.ErrPhaseNotActive
	}
	if option < 0 || option >= len(s.question.Options) {
		return domain.AnswerAck{}, domain.ErrInvalidOption
	}
	now := s.clock.Now()
	if now.After(s.deadline) {
		// Rejected, not dropped: the caller learns the question will be
		// scored as unanswered.
		return domain.AnswerAck{}, domain.ErrTimeExpired
	}

	elapsed := now.Sub(s.startedAt)
	record, err := s.reg.recordAnswer(participantID, questionIndex, option, elapsed)
	if err != nil {
		return domain.AnswerAck{}, err
	}

	s.log.Debug().
		Str("participant_id", participantID).
		Int("question_index", questionIndex).
		Dur("elapsed", elapsed).
		Msg("answer recorded")

	state := s.reg.participants[participantID]
	participant := state.Participant
	s.broadcastLocked(domain.Event{
		Type:        domain.EventAnswerAccepted,
		Participant: &participant,
		Answered:    s.reg.answeredCount(questionIndex),
	})

	if s.reg.allAnswered(questionIndex) {
		s.revealLocked()
	}

	return domain.AnswerAck{
		QuestionIndex: record.QuestionIndex,
		Option:        record.Option,
		ElapsedMs:     record.ElapsedMs,
	}, nil
}

// Subscribe attaches an observer. The returned channel first delivers a full
// state snapshot event, then incremental deltas. The cancel function must be
// called to release the subscription.
func (s *Session) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	snap := s.snapshotLocked()
	// Sent under the lock so no delta can slip in ahead of the snapshot;
	// the fresh buffered channel cannot block here.
	ch <- domain.Event{
		Type:          domain.EventSnapshot,
		SessionID:     s.ID,
		Phase:         snap.Phase,
		QuestionIndex: snap.QuestionIndex,
		At:            snap.Leaderboard.UpdatedAt,
		Snapshot:      &snap,
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the full current state.
func (s *Session) Snapshot() domain.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// IsEmpty reports whether no participants are connected.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.connectedCount() == 0
}

// Done is closed when the session reaches a terminal phase.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) requireHostLocked(participantID string) error {
	state, ok := s.reg.participants[participantID]
	if !ok || !state.connected {
		return domain.ErrUnknownParticipant
	}
	if !state.Host {
		return domain.ErrNotHost
	}
	return nil
}

// scheduleLocked arms a one-shot deadline timer for the current phase. The
// epoch tags the timer; a firing with a stale epoch is ignored, which makes
// re-delivered or superseded expiries no-ops.
func (s *Session) scheduleLocked(d time.Duration) {
	s.epoch++
	epoch := s.epoch
	t := s.clock.NewTimer(d)
	go func() {
		select {
		case <-t.Chan():
			s.onDeadline(epoch)
		case <-s.done:
			if !t.Stop() {
				select {
				case <-t.Chan():
				default:
				}
			}
		}
	}()
}

func (s *Session) onDeadline(epoch int) {
	ctx, cancel := context.WithTimeout(context.Background(), contentFetchTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.phase.Terminal() {
		return
	}
	if err := s.expireLocked(ctx); err != nil {
		s.log.Warn().Err(err).Str("phase", string(s.phase)).Msg("deadline transition failed")
	}
}

// expireLocked applies the transition a deadline expiry demands in the
// current phase.
func (s *Session) expireLocked(ctx context.Context) error {
	switch s.phase {
	case domain.PhaseCountdown:
		return s.startQuestionLocked(ctx, 0)
	case domain.PhaseQuestion:
		s.revealLocked()
		return nil
	case domain.PhaseReveal:
		return s.advanceLocked(ctx)
	default:
		return nil
	}
}

// startQuestionLocked enters QuestionActive for the given index. Content is
// fetched through the store on every entry; a failure holds the session in
// its prior phase and is surfaced to the host for retry, except when the
// quiz itself is gone, which aborts the run.
func (s *Session) startQuestionLocked(ctx context.Context, index int) error {
	quiz, err := s.store.GetQuiz(ctx, s.QuizID)
	if err == nil {
		err = quiz.Validate()
	}
	if err == nil && index >= len(quiz.Questions) {
		err = domain.ErrQuizNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			s.log.Error().Err(err).Msg("quiz content gone, aborting session")
			s.abortLocked("quiz content no longer available")
			return errors.Join(domain.ErrContentUnavailable, err)
		}
		s.log.Warn().Err(err).Int("question_index", index).Msg("content unavailable, holding phase")
		s.broadcastLocked(domain.Event{
			Type:    domain.EventContentError,
			Message: "question could not be loaded, host may retry",
		})
		return errors.Join(domain.ErrContentUnavailable, err)
	}

	q := quiz.Questions[index]
	s.totalQs = len(quiz.Questions)
	s.question = q
	s.questionIndex = index
	s.phase = domain.PhaseQuestion
	s.startedAt = s.clock.Now()
	s.deadline = s.startedAt.Add(q.TimeLimit())
	s.scheduleLocked(q.TimeLimit())

	view := q.View(index, s.totalQs)
	s.log.Info().Int("question_index", index).Int("time_limit_sec", q.TimeLimitSec).Msg("question active")
	s.broadcastLocked(domain.Event{
		Type:       domain.EventPhaseChanged,
		Question:   &view,
		DeadlineMs: q.TimeLimit().Milliseconds(),
	})
	return nil
}

// revealLocked scores the just-ended question for every registered
// participant, including those with no answer record, recomputes the
// standings and dwells before advancing.
func (s *Session) revealLocked() {
	q := s.question
	index := s.questionIndex
	now := s.clock.Now()

	states := s.reg.all()
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })

	answers := make([]domain.AnswerReveal, 0, len(states))
	for _, state := range states {
		outcome := domain.AnswerReveal{
			ParticipantID: state.ID,
			DisplayName:   state.DisplayName,
			Option:        domain.NoAnswer,
		}
		record, answered := s.reg.answerFor(index, state.ID)
		if answered {
			outcome.Option = record.Option
			outcome.Correct = record.Option == q.CorrectIndex
			outcome.ElapsedMs = record.ElapsedMs
			outcome.Awarded = s.cfg.Scoring.Score(outcome.Correct, record.Elapsed, q.TimeLimit(), q.BasePoints())
		}
		s.reg.commitScore(state.ID, outcome.Awarded, outcome.Correct, answered, record.Elapsed)
		answers = append(answers, outcome)
	}

	lb := standings(s.ID, s.reg.all(), now)

	s.phase = domain.PhaseReveal
	s.deadline = now.Add(s.cfg.RevealDwell)
	s.scheduleLocked(s.cfg.RevealDwell)

	s.log.Info().Int("question_index", index).Int("answers", s.reg.answeredCount(index)).Msg("question revealed")
	s.broadcastLocked(domain.Event{
		Type: domain.EventReveal,
		Reveal: &domain.RevealSummary{
			QuestionIndex: index,
			CorrectIndex:  q.CorrectIndex,
			Answers:       answers,
		},
		DeadlineMs: s.cfg.RevealDwell.Milliseconds(),
	})
	s.broadcastLocked(domain.Event{
		Type:        domain.EventLeaderboard,
		Leaderboard: &lb,
	})
}

func (s *Session) advanceLocked(ctx context.Context) error {
	next := s.questionIndex + 1
	if next >= s.totalQs {
		s.finishLocked()
		return nil
	}
	return s.startQuestionLocked(ctx, next)
}

func (s *Session) finishLocked() {
	s.phase = domain.PhaseFinished
	lb := standings(s.ID, s.reg.all(), s.clock.Now())
	results := finalResults(lb, s.totalQs)
	s.log.Info().Int("questions", s.totalQs).Float64("avg_score", results.AverageScore).Msg("session finished")
	s.broadcastLocked(domain.Event{
		Type:        domain.EventPhaseChanged,
		Leaderboard: &lb,
		Results:     &results,
	})
	close(s.done)
}

func (s *Session) abortLocked(reason string) {
	s.phase = domain.PhaseAborted
	s.broadcastLocked(domain.Event{
		Type:    domain.EventPhaseChanged,
		Message: reason,
	})
	close(s.done)
}

// broadcastLocked fans an event out to every subscriber without blocking:
// a full channel sheds its oldest event so slow observers cannot stall the
// session.
func (s *Session) broadcastLocked(ev domain.Event) {
	ev.SessionID = s.ID
	ev.Phase = s.phase
	ev.QuestionIndex = s.questionIndex
	ev.At = s.clock.Now()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) snapshotLocked() domain.StateSnapshot {
	now := s.clock.Now()
	participants := s.reg.connected()
	sort.Slice(participants, func(i, j int) bool { return participants[i].ID < participants[j].ID })

	snap := domain.StateSnapshot{
		SessionID:     s.ID,
		QuizID:        s.QuizID,
		Phase:         s.phase,
		QuestionIndex: s.questionIndex,
		Participants:  participants,
		Leaderboard:   standings(s.ID, s.reg.all(), now),
	}
	if s.phase == domain.PhaseQuestion || s.phase == domain.PhaseReveal {
		view := s.question.View(s.questionIndex, s.totalQs)
		snap.Question = &view
	}
	if !s.phase.Terminal() && s.deadline.After(now) {
		snap.DeadlineMs = s.deadline.Sub(now).Milliseconds()
	}
	return snap
}

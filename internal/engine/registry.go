package engine

import (
	"time"

	"quizlive/internal/domain"
)

// participantState is the registry's mutable record for one participant.
// Scores are committed only at reveal and never decrease.
type participantState struct {
	domain.Participant
	connected    bool
	score        int
	correct      int
	answered     int
	totalElapsed time.Duration
}

// registry tracks live participants and their answer records. It is owned by
// the session's critical section and is not safe for unguarded concurrent
// use: the session mutex is the single arbitration point, so two racing
// submissions for the same participant serialize there and the first one
// through commits.
type registry struct {
	participants map[string]*participantState
	answers      map[int]map[string]domain.AnswerRecord
}

func newRegistry() *registry {
	return &registry{
		participants: make(map[string]*participantState),
		answers:      make(map[int]map[string]domain.AnswerRecord),
	}
}

// register adds a participant or re-attaches a disconnected one. Re-joining
// refreshes presence metadata but preserves the accumulated score. A second
// live connection for the same id is rejected.
func (r *registry) register(p domain.Participant) (*participantState, error) {
	if existing, ok := r.participants[p.ID]; ok {
		if existing.connected {
			return nil, domain.ErrDuplicateID
		}
		existing.DisplayName = p.DisplayName
		existing.JoinedAt = p.JoinedAt
		existing.connected = true
		return existing, nil
	}
	state := &participantState{Participant: p, connected: true}
	r.participants[p.ID] = state
	return state, nil
}

// remove marks a participant disconnected. The state stays so a re-join
// keeps the accumulated score and the leaderboard keeps the entry.
func (r *registry) remove(id string) (*participantState, bool) {
	state, ok := r.participants[id]
	if !ok || !state.connected {
		return nil, false
	}
	state.connected = false
	return state, true
}

// recordAnswer commits the first submission for (participant, question).
// Later submissions for the same pair are rejected; arrival order at the
// registry decides the winner.
func (r *registry) recordAnswer(id string, questionIndex, option int, elapsed time.Duration) (domain.AnswerRecord, error) {
	state, ok := r.participants[id]
	if !ok || !state.connected {
		return domain.AnswerRecord{}, domain.ErrUnknownParticipant
	}
	byParticipant, ok := r.answers[questionIndex]
	if !ok {
		byParticipant = make(map[string]domain.AnswerRecord)
		r.answers[questionIndex] = byParticipant
	}
	if _, dup := byParticipant[id]; dup {
		return domain.AnswerRecord{}, domain.ErrAlreadyAnswered
	}
	record := domain.AnswerRecord{
		ParticipantID: id,
		QuestionIndex: questionIndex,
		Option:        option,
		Elapsed:       elapsed,
		ElapsedMs:     elapsed.Milliseconds(),
	}
	byParticipant[id] = record
	return record, nil
}

// answerFor returns the committed record, if any, for one participant.
func (r *registry) answerFor(questionIndex int, id string) (domain.AnswerRecord, bool) {
	record, ok := r.answers[questionIndex][id]
	return record, ok
}

// answeredCount returns how many connected participants have a record for
// the question.
func (r *registry) answeredCount(questionIndex int) int {
	n := 0
	for id := range r.answers[questionIndex] {
		if state, ok := r.participants[id]; ok && state.connected {
			n++
		}
	}
	return n
}

// allAnswered reports whether every connected participant has submitted.
func (r *registry) allAnswered(questionIndex int) bool {
	connected := r.connectedCount()
	return connected > 0 && r.answeredCount(questionIndex) >= connected
}

// commitScore applies a reveal-time award. Awards are never negative so the
// running total is monotonically non-decreasing.
func (r *registry) commitScore(id string, awarded int, correct, answered bool, elapsed time.Duration) {
	state, ok := r.participants[id]
	if !ok {
		return
	}
	if awarded > 0 {
		state.score += awarded
	}
	if correct {
		state.correct++
	}
	if answered {
		state.answered++
		state.totalElapsed += elapsed
	}
}

func (r *registry) connectedCount() int {
	n := 0
	for _, state := range r.participants {
		if state.connected {
			n++
		}
	}
	return n
}

// connected returns presence records for everyone currently attached.
func (r *registry) connected() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.participants))
	for _, state := range r.participants {
		if state.connected {
			out = append(out, state.Participant)
		}
	}
	return out
}

// all returns every participant state ever registered, including
// disconnected ones, for leaderboard recomputation.
func (r *registry) all() []*participantState {
	out := make([]*participantState, 0, len(r.participants))
	for _, state := range r.participants {
		out = append(out, state)
	}
	return out
}

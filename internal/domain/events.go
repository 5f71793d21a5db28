package domain

import "time"

// EventType discriminates outbound session events.
type EventType string

const (
	// EventSnapshot carries the full current state; always the first event
	// a subscriber receives.
	EventSnapshot EventType = "snapshot"
	// EventPhaseChanged announces a phase transition.
	EventPhaseChanged EventType = "phaseChanged"
	// EventParticipantJoined and EventParticipantLeft are presence deltas.
	EventParticipantJoined EventType = "participantJoined"
	EventParticipantLeft   EventType = "participantLeft"
	// EventAnswerAccepted announces that a participant has answered the
	// current question (without revealing the chosen option).
	EventAnswerAccepted EventType = "answerAccepted"
	// EventReveal carries the per-question outcome summary.
	EventReveal EventType = "reveal"
	// EventLeaderboard carries freshly recomputed standings.
	EventLeaderboard EventType = "leaderboard"
	// EventContentError tells the host a question could not be loaded and
	// the pending transition is held for retry.
	EventContentError EventType = "contentError"
)

// Event is a state-change notification fanned out to all session observers.
// Exactly one payload field is set per type; all payloads are immutable
// snapshots.
type Event struct {
	Type          EventType       `json:"type"`
	SessionID     string          `json:"sessionId"`
	Phase         Phase           `json:"phase"`
	QuestionIndex int             `json:"questionIndex"`
	At            time.Time       `json:"at"`
	Question      *QuestionView   `json:"question,omitempty"`
	DeadlineMs    int64           `json:"deadlineMs,omitempty"`
	Participant   *Participant    `json:"participant,omitempty"`
	Answered      int             `json:"answered,omitempty"`
	Reveal        *RevealSummary  `json:"reveal,omitempty"`
	Leaderboard   *Leaderboard    `json:"leaderboard,omitempty"`
	Results       *SessionResults `json:"results,omitempty"`
	Snapshot      *StateSnapshot  `json:"snapshot,omitempty"`
	Message       string          `json:"message,omitempty"`
}

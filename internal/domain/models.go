package domain

import (
	"fmt"
	"time"
)

// Phase is one discrete state of a quiz session.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhaseQuestion  Phase = "question"
	PhaseReveal    Phase = "reveal"
	PhaseFinished  Phase = "finished"
	PhaseAborted   Phase = "aborted"
)

// Terminal reports whether the session can no longer change state.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseAborted
}

// NoAnswer marks the option index of a participant who never submitted.
const NoAnswer = -1

// Question models an MCQ question with exactly one correct option index.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimitSec int      `json:"timeLimitSec"`
	Points       int      `json:"points"` // defaults to 100 if zero
	ImageURL     string   `json:"imageUrl,omitempty"`
}

// TimeLimit returns the answer window as a duration.
func (q Question) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitSec) * time.Second
}

// BasePoints returns the configured point value, defaulting when unset.
func (q Question) BasePoints() int {
	if q.Points <= 0 {
		return 100
	}
	return q.Points
}

// Validate checks the content invariants a question must satisfy before it
// can be played.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("question %s: needs at least 2 options, has %d", q.ID, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("question %s: correct index %d out of range", q.ID, q.CorrectIndex)
	}
	if q.TimeLimitSec <= 0 {
		return fmt.Errorf("question %s: time limit must be positive", q.ID)
	}
	if q.Points < 0 {
		return fmt.Errorf("question %s: points must not be negative", q.ID)
	}
	return nil
}

// Quiz is an ordered collection of questions, read-only to the engine.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// Validate checks every question in order.
func (z Quiz) Validate() error {
	if len(z.Questions) == 0 {
		return fmt.Errorf("quiz %s: has no questions", z.ID)
	}
	for _, q := range z.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// QuestionView is the question as shown to players while it is active: the
// correct index is withheld until reveal.
type QuestionView struct {
	Index        int      `json:"index"`
	Total        int      `json:"total"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	TimeLimitSec int      `json:"timeLimitSec"`
	Points       int      `json:"points"`
	ImageURL     string   `json:"imageUrl,omitempty"`
}

// View renders the player-facing form of a question.
func (q Question) View(index, total int) QuestionView {
	return QuestionView{
		Index:        index,
		Total:        total,
		Prompt:       q.Prompt,
		Options:      q.Options,
		TimeLimitSec: q.TimeLimitSec,
		Points:       q.BasePoints(),
		ImageURL:     q.ImageURL,
	}
}

// Participant is a connected member of a session.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Host        bool      `json:"host,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// AnswerRecord is the single authoritative submission for one participant
// and question. The first accepted submission wins; elapsed is measured by
// the session clock from question start, never by the client.
type AnswerRecord struct {
	ParticipantID string        `json:"participantId"`
	QuestionIndex int           `json:"questionIndex"`
	Option        int           `json:"option"`
	Elapsed       time.Duration `json:"-"`
	ElapsedMs     int64         `json:"elapsedMs"`
}

// AnswerAck confirms an accepted submission to its originator.
type AnswerAck struct {
	QuestionIndex int   `json:"questionIndex"`
	Option        int   `json:"option"`
	ElapsedMs     int64 `json:"elapsedMs"`
}

// AnswerReveal is one participant's outcome for a revealed question.
type AnswerReveal struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Option        int    `json:"option"` // NoAnswer when none submitted
	Correct       bool   `json:"correct"`
	Awarded       int    `json:"awarded"`
	ElapsedMs     int64  `json:"elapsedMs,omitempty"`
}

// RevealSummary is the per-question outcome published when a question ends.
type RevealSummary struct {
	QuestionIndex int            `json:"questionIndex"`
	CorrectIndex  int            `json:"correctIndex"`
	Answers       []AnswerReveal `json:"answers"`
}

// LeaderboardEntry is one ranked row of the standings.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Rank          int    `json:"rank"`
	Score         int    `json:"score"`
	Correct       int    `json:"correct"`
	Answered      int    `json:"answered"`
	AvgAnswerMs   int64  `json:"avgAnswerMs"`
}

// Leaderboard captures the ordered standings of a session.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// PlayerResult is one participant's final outcome.
type PlayerResult struct {
	ParticipantID string  `json:"participantId"`
	DisplayName   string  `json:"displayName"`
	Rank          int     `json:"rank"`
	Score         int     `json:"score"`
	Correct       int     `json:"correct"`
	AccuracyPct   float64 `json:"accuracyPct"`
	AvgAnswerMs   int64   `json:"avgAnswerMs"`
}

// SessionResults is the end-of-session summary: final ranking with accuracy
// over all questions played and the session-wide average score.
type SessionResults struct {
	SessionID    string         `json:"sessionId"`
	Questions    int            `json:"questions"`
	AverageScore float64        `json:"averageScore"`
	Players      []PlayerResult `json:"players"`
}

// StateSnapshot is the full current state handed to (re)connecting
// observers before they receive incremental events.
type StateSnapshot struct {
	SessionID     string        `json:"sessionId"`
	QuizID        string        `json:"quizId"`
	Phase         Phase         `json:"phase"`
	QuestionIndex int           `json:"questionIndex"`
	Question      *QuestionView `json:"question,omitempty"`
	DeadlineMs    int64         `json:"deadlineMs,omitempty"` // remaining, not absolute
	Participants  []Participant `json:"participants"`
	Leaderboard   Leaderboard   `json:"leaderboard"`
}

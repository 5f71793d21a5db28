package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id does not resolve.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrContentUnavailable is fatal to the transition that needed the
	// content; the session holds its prior phase so the host can retry.
	ErrContentUnavailable = errors.New("quiz content unavailable")

	// ErrDuplicateID is returned when a live participant id joins twice.
	ErrDuplicateID = errors.New("participant id already connected")
	// ErrUnknownParticipant is returned when a user acts before joining.
	ErrUnknownParticipant = errors.New("participant not found in session")
	// ErrAlreadyAnswered rejects a second submission for the same question.
	ErrAlreadyAnswered = errors.New("answer already recorded for this question")
	// ErrTimeExpired rejects a submission after the question deadline; the
	// question will be scored as unanswered.
	ErrTimeExpired = errors.New("time expired for this question")
	// ErrPhaseNotActive rejects input the current phase does not accept.
	ErrPhaseNotActive = errors.New("session phase does not accept this action")
	// ErrInsufficientParticipants refuses a start below the minimum.
	ErrInsufficientParticipants = errors.New("not enough participants to start")
	// ErrNotHost refuses host-only actions from regular participants.
	ErrNotHost = errors.New("only the host may perform this action")
	// ErrInvalidOption rejects an option index outside the question bounds.
	ErrInvalidOption = errors.New("option index out of range")
)

package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the given id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionExpired is returned when a session is terminal or past its liveness window.
	ErrSessionExpired = errors.New("quiz session expired")
	// ErrNotSessionOwner is returned when a caller touches a session they do not own.
	ErrNotSessionOwner = errors.New("quiz session belongs to another user")
	// ErrQuestionNotFound indicates a submitted question ID was never issued for the session.
	ErrQuestionNotFound = errors.New("question not found in session")
	// ErrQuestionAnswered indicates a repeat submission for an already-answered question.
	ErrQuestionAnswered = errors.New("question already answered")
	// ErrQuotaExceeded indicates the free-tier daily question limit was reached.
	ErrQuotaExceeded = errors.New("daily question quota exhausted")
	// ErrNoAnswersRecorded rejects finalizing a session before any question was answered.
	ErrNoAnswersRecorded = errors.New("session has no answered questions")
	// ErrTermInventory indicates the term source ran out of unused terms.
	ErrTermInventory = errors.New("not enough terms for requested difficulty")
	// ErrInvalidDifficulty indicates an unknown difficulty value.
	ErrInvalidDifficulty = errors.New("unknown difficulty")
	// ErrStorage wraps session store failures.
	ErrStorage = errors.New("session storage unavailable")
)

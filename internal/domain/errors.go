package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a session key.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuestionNotFound indicates no bank row matches a question key.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrEmptyPool indicates the selection filter matched no eligible questions.
	ErrEmptyPool = errors.New("no questions match the selection")
	// ErrNoWrongRecords indicates retry mode was requested by a user with no
	// wrong-answer history.
	ErrNoWrongRecords = errors.New("no wrong-answer records for user")
	// ErrUsernameRequired is returned when a session is started without a user.
	ErrUsernameRequired = errors.New("username required")
	// ErrChoiceNotFound indicates a submitted answer label is not an option of
	// the question.
	ErrChoiceNotFound = errors.New("chosen option not found")
	// ErrSessionNotComplete is returned when a result is requested before
	// every question has a recorded answer.
	ErrSessionNotComplete = errors.New("quiz not fully answered")
)

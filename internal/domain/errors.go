package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been created by the host.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrParticipantNotFound is returned when a party acts before joining the session.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrQuestionSetNotFound indicates the question bank could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrNoQuestions rejects starting a session with an empty question list.
	ErrNoQuestions = errors.New("session has no questions configured")
	// ErrQuestionNotFound indicates a referenced question ID is not part of the session.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidOption indicates an answer label outside A-D.
	ErrInvalidOption = errors.New("invalid answer option")
	// ErrAlreadyAnswered rejects a second submission for the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNoActiveQuestion is returned when an answer arrives outside a question window.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrSessionExhausted is returned when the host advances past the last question.
	ErrSessionExhausted = errors.New("no questions remaining")
	// ErrInvalidTransition rejects a host action that is illegal in the current state.
	ErrInvalidTransition = errors.New("invalid session state transition")
)

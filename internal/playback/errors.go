package playback

import "errors"

var (
	ErrSeekNotAllowed    = errors.New("seeking is not allowed for this video")
	ErrNoPendingQuestion = errors.New("no question is awaiting an answer")
	ErrQuestionMismatch  = errors.New("answer does not match the pending question")
	ErrNotCloseable      = errors.New("pending question cannot be closed")
	ErrAwaitingAnswer    = errors.New("a question is awaiting an answer")
	ErrSessionReleased   = errors.New("playback session released")
	ErrNotInitialized    = errors.New("playback session not initialized")
	ErrInvalidPosition   = errors.New("position must be a finite number")
)

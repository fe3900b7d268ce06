package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBusy indicates a stream is already in flight for the session
	ErrBusy = errors.New("a reply is still streaming")
	// ErrNoAssistantTurn indicates there is nothing to regenerate
	ErrNoAssistantTurn = errors.New("no assistant turn to regenerate")
)

package services

import "errors"

var (
	ErrNotFound           = errors.New("session not found")
	ErrAlreadyExists      = errors.New("a live session already exists for this event")
	ErrInvalidTransition  = errors.New("invalid session status transition")
	ErrInvalidState       = errors.New("action not allowed in the current session state")
	ErrUnknownParticipant = errors.New("participant is not registered in this session")
	ErrInvalidScore       = errors.New("rubric criteria must be integers between 0 and 2")
	ErrUnauthorized       = errors.New("role is not allowed to perform this action")
)

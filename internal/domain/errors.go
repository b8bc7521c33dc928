package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or expired.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrUnauthorized is returned when credentials are missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the session role cannot perform an action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput covers malformed requests (missing name, unknown country).
	ErrInvalidInput = errors.New("invalid input")
	// ErrConcurrentUpdate is returned when a session was saved by someone else
	// after it was read.
	ErrConcurrentUpdate = errors.New("quiz session changed concurrently")
)

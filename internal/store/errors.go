package store

import "errors"

// Common store errors.
var (
	// ErrJobNotFound is returned when a requested job does not exist in
	// the registry.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicate is returned when saving a job whose ID is already
	// registered.
	ErrDuplicate = errors.New("job already exists")

	// ErrJobTerminal is returned when a status transition is attempted on
	// a job that already reached a terminal state. Terminal jobs are
	// immutable.
	ErrJobTerminal = errors.New("job already in a terminal state")
)

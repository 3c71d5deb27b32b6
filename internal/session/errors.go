package session

import "errors"

var (
	// ErrUnknownPlayer is returned when selecting an id that is not on the roster.
	ErrUnknownPlayer = errors.New("player is not on the roster")

	// ErrInvalidQuarter is returned when setting a quarter below 1.
	ErrInvalidQuarter = errors.New("quarter must be at least 1")

	// ErrCorruptSnapshot is returned by Restore when a persisted record violates
	// a session invariant.
	ErrCorruptSnapshot = errors.New("corrupt session snapshot")
)

package queue

import "errors"

var (
	// ErrNotFound is returned when a dead-letter id does not exist.
	ErrNotFound = errors.New("failed action not found")

	// ErrAlreadyRunning is returned when Run is called on a queue that already has a worker.
	ErrAlreadyRunning = errors.New("queue worker already running")
)

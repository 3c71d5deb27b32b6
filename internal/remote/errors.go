package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyConflict means an idempotency key was reused for a different play.
	ErrKeyConflict = errors.New("idempotency key reused with a different payload")

	// ErrInvalidSubmission means the payload failed validation.
	ErrInvalidSubmission = errors.New("invalid submission")
)

// RejectedError is a 4xx answer from the remote. Resending the same request
// will not change the outcome.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote rejected request: %d: %s", e.StatusCode, e.Message)
}

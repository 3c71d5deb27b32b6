package model

import (
	"encoding/json"
	"time"
)

// ActionType is the kind of remote mutation an OfflineAction performs.
type ActionType string

const (
	ActionCreate ActionType = "CREATE"
	ActionUpdate ActionType = "UPDATE"
	ActionDelete ActionType = "DELETE"
)

// Entity names a remote resource.
type Entity string

const (
	EntityPlay Entity = "play"
	EntityGame Entity = "game"
)

// OfflineAction is a pending remote mutation.
type OfflineAction struct {
	ID         string          `json:"id"`
	Type       ActionType      `json:"type"`
	Entity     Entity          `json:"entity"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Retries    int             `json:"retries"`
}

// FailedAction is an OfflineAction that exhausted its automatic retries.
// It lives only in the dead-letter list until an operator retries or discards it.
type FailedAction struct {
	OfflineAction
	Error         string    `json:"error"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

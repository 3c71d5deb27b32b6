package syncproto

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/huddle/internal/model"
)

// ErrInvalidPayload marks a payload that can never be accepted.
var ErrInvalidPayload = errors.New("invalid payload")

// Game status values carried by GameUpdate.
const (
	GameInProgress = "in_progress"
	GameFinal      = "final"
)

// PlaySubmission is the remote form of one recorded play.
type PlaySubmission struct {
	GameID         string            `json:"game_id"`
	SessionID      string            `json:"session_id"`
	PlayNumber     int               `json:"play_number"`
	Quarter        int               `json:"quarter"`
	PlayType       model.Mode        `json:"play_type"`
	Result         model.Result      `json:"result"`
	Players        []model.PlayerID  `json:"players"`
	IdempotencyKey string            `json:"idempotency_key"`
	RecordedAt     time.Time         `json:"recorded_at"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// NewPlaySubmission builds the submission for a recorded play entry.
func NewPlaySubmission(gameID, sessionID string, e model.PlayEntry) PlaySubmission {
	players := make([]model.PlayerID, len(e.Players))
	copy(players, e.Players)

	var extra map[string]string
	if len(e.Extra) > 0 {
		extra = make(map[string]string, len(e.Extra))
		for k, v := range e.Extra {
			extra[k] = v
		}
	}

	return PlaySubmission{
		GameID:         gameID,
		SessionID:      sessionID,
		PlayNumber:     e.PlayNumber,
		Quarter:        e.Quarter,
		PlayType:       e.Mode,
		Result:         e.Result,
		Players:        players,
		IdempotencyKey: e.Key,
		RecordedAt:     e.RecordedAt.UTC(),
		Extra:          extra,
	}
}

// Validate reports whether the submission is well formed.
func (p PlaySubmission) Validate() error {
	switch {
	case p.IdempotencyKey == "":
		return fmt.Errorf("%w: missing idempotency_key", ErrInvalidPayload)
	case p.GameID == "":
		return fmt.Errorf("%w: missing game_id", ErrInvalidPayload)
	case p.PlayNumber < 1:
		return fmt.Errorf("%w: play_number %d < 1", ErrInvalidPayload, p.PlayNumber)
	case p.Quarter < 1:
		return fmt.Errorf("%w: quarter %d < 1", ErrInvalidPayload, p.Quarter)
	}
	if _, err := model.ParseMode(string(p.PlayType)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := model.ParseResult(string(p.Result)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// Fingerprint hashes the canonical form of the submission. A remote uses it
// to tell a genuine retry from a different play that reused a key.
func (p PlaySubmission) Fingerprint() (string, error) {
	players := make([]string, len(p.Players))
	for i, id := range p.Players {
		players[i] = string(id)
	}
	extra := p.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	return model.Fingerprint(model.DomainPlaySubmission, map[string]any{
		"game_id":         p.GameID,
		"session_id":      p.SessionID,
		"play_number":     p.PlayNumber,
		"quarter":         p.Quarter,
		"play_type":       string(p.PlayType),
		"result":          string(p.Result),
		"players":         players,
		"idempotency_key": p.IdempotencyKey,
		"recorded_at":     p.RecordedAt.UTC().Format(time.RFC3339Nano),
		"extra":           extra,
	})
}

// PlayResponse is the remote's answer to a submission.
// Idempotent=true means the key was already applied; it is a success.
type PlayResponse struct {
	PlayID     string `json:"play_id"`
	PlayNumber int    `json:"play_number"`
	Idempotent bool   `json:"idempotent"`
	Message    string `json:"message,omitempty"`
}

// PlayDeletion retracts a previously submitted play by its key.
type PlayDeletion struct {
	GameID         string `json:"game_id"`
	IdempotencyKey string `json:"idempotency_key"`
	PlayNumber     int    `json:"play_number"`
}

// Validate reports whether the deletion is well formed.
func (d PlayDeletion) Validate() error {
	if d.GameID == "" || d.IdempotencyKey == "" {
		return fmt.Errorf("%w: deletion needs game_id and idempotency_key", ErrInvalidPayload)
	}
	return nil
}

// GameUpdate changes game-level fields. Nil fields are left unchanged.
type GameUpdate struct {
	GameID     string       `json:"game_id"`
	Quarter    *int         `json:"quarter,omitempty"`
	FinalScore *model.Score `json:"final_score,omitempty"`
	Status     string       `json:"status,omitempty"`
}

// Validate reports whether the update is well formed.
func (u GameUpdate) Validate() error {
	if u.GameID == "" {
		return fmt.Errorf("%w: missing game_id", ErrInvalidPayload)
	}
	if u.Quarter != nil && *u.Quarter < 1 {
		return fmt.Errorf("%w: quarter %d < 1", ErrInvalidPayload, *u.Quarter)
	}
	switch u.Status {
	case "", GameInProgress, GameFinal:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPayload, u.Status)
	}
	return nil
}

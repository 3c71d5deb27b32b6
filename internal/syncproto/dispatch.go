package syncproto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/huddle/internal/model"
)

// ErrUnroutable means no remote operation exists for an action's type and entity.
var ErrUnroutable = errors.New("unroutable action")

// Remote is the remote store as seen by the device.
type Remote interface {
	SubmitPlay(ctx context.Context, p PlaySubmission) (PlayResponse, error)
	DeletePlay(ctx context.Context, d PlayDeletion) error
	UpdateGame(ctx context.Context, u GameUpdate) error
}

// Dispatcher routes queued actions to a Remote. It satisfies queue.Dispatcher.
type Dispatcher struct {
	remote Remote
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger uses slog.Default().
func NewDispatcher(r Remote, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{remote: r, logger: logger}
}

// Dispatch performs the remote effect of a.
func (d *Dispatcher) Dispatch(ctx context.Context, a model.OfflineAction) error {
	switch {
	case a.Type == model.ActionCreate && a.Entity == model.EntityPlay:
		var p PlaySubmission
		if err := decode(a.Payload, &p); err != nil {
			return fmt.Errorf("action %s: %w", a.ID, err)
		}
		resp, err := d.remote.SubmitPlay(ctx, p)
		if err != nil {
			return fmt.Errorf("submit play %d: %w", p.PlayNumber, err)
		}
		if resp.Idempotent {
			d.logger.Info("play already applied",
				"key", p.IdempotencyKey,
				"play_id", resp.PlayID,
				"message", resp.Message,
			)
		}
		return nil

	case a.Type == model.ActionDelete && a.Entity == model.EntityPlay:
		var del PlayDeletion
		if err := decode(a.Payload, &del); err != nil {
			return fmt.Errorf("action %s: %w", a.ID, err)
		}
		if err := d.remote.DeletePlay(ctx, del); err != nil {
			return fmt.Errorf("delete play %d: %w", del.PlayNumber, err)
		}
		return nil

	case a.Type == model.ActionUpdate && a.Entity == model.EntityGame:
		var u GameUpdate
		if err := decode(a.Payload, &u); err != nil {
			return fmt.Errorf("action %s: %w", a.ID, err)
		}
		if err := d.remote.UpdateGame(ctx, u); err != nil {
			return fmt.Errorf("update game %s: %w", u.GameID, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %s %s", ErrUnroutable, a.Type, a.Entity)
	}
}

func decode(payload json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

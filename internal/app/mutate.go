package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/queue"
	"github.com/roach88/huddle/internal/session"
	"github.com/roach88/huddle/internal/store"
)

// errNoop tells mutate that fn changed nothing and nothing must be written.
var errNoop = errors.New("no-op")

// outbound is a remote mutation produced by a session change.
type outbound struct {
	typ     model.ActionType
	entity  model.Entity
	payload any
}

// mutate applies fn to the active session and persists the result. If fn
// returns an outbound action, it is enqueued and committed in the same
// transaction as the session record. Any failure restores the session.
func (a *App) mutate(ctx context.Context, op string, fn func(*session.Session) (*outbound, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess == nil {
		return fmt.Errorf("%s: %w", op, ErrNoActiveGame)
	}

	before := a.sess.Snapshot()
	out, err := fn(a.sess)
	if errors.Is(err, errNoop) {
		return nil
	}
	if err != nil {
		a.rollback(before)
		return fmt.Errorf("%s: %w", op, err)
	}

	snap := a.sess.Snapshot()
	if out == nil {
		err = a.store.Commit(ctx, store.Batch{Session: &snap})
	} else {
		_, err = a.queue.Enqueue(ctx, out.typ, out.entity, out.payload,
			queue.WithPersist(func(ctx context.Context, pending []model.OfflineAction, failed []model.FailedAction) error {
				return a.store.Commit(ctx, store.Batch{
					Session: &snap,
					Queue:   &store.QueueState{Pending: pending, Failed: failed},
				})
			}),
		)
	}
	if err != nil {
		a.rollback(before)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// rollback reinstates the session captured before a failed mutation.
func (a *App) rollback(before session.Snapshot) {
	restored, err := session.Restore(before)
	if err != nil {
		// The snapshot came from a live session; this cannot fail unless
		// the session itself was already inconsistent.
		a.logger.Error("rollback failed", "error", err)
		return
	}
	a.sess = restored
}

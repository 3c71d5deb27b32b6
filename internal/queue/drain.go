package queue

import (
	"context"
	"fmt"

	"github.com/roach88/huddle/internal/model"
)

// Drain runs one pass over the queue while online.
//
// The pass dispatches head to tail. A success removes the action; a failure
// with retries left increments its count and ends the pass; a failure on an
// action that already used every retry moves it to the dead-letter list and
// the pass continues with the next action.
//
// Remote failures are never returned. The error reports persistence failure
// or context cancellation before a dispatch.
func (q *Queue) Drain(ctx context.Context) (Report, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	var rep Report

	q.mu.Lock()
	if !q.online || len(q.pending) == 0 {
		q.mu.Unlock()
		return rep, nil
	}
	q.status = StatusSyncing
	q.lastFail = false
	q.mu.Unlock()

	q.logger.Debug("drain started")
	err := q.drainPass(ctx, &rep)

	q.mu.Lock()
	q.status = StatusIdle
	q.lastFail = rep.Requeued > 0 || rep.DeadLettered > 0 || err != nil
	q.refreshStatus()
	status := q.status
	q.mu.Unlock()

	q.logger.Info("drain finished",
		"attempted", rep.Attempted,
		"succeeded", rep.Succeeded,
		"requeued", rep.Requeued,
		"dead_lettered", rep.DeadLettered,
		"status", status,
	)
	return rep, err
}

func (q *Queue) drainPass(ctx context.Context, rep *Report) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		q.mu.Lock()
		if !q.online || len(q.pending) == 0 {
			q.mu.Unlock()
			return nil
		}
		action := q.pending[0]
		q.inFlight = action.ID
		q.mu.Unlock()

		dispatchErr := q.dispatcher.Dispatch(ctx, action)
		rep.Attempted++

		q.mu.Lock()
		q.inFlight = ""
		stop, err := q.settle(ctx, action, dispatchErr, rep)
		q.mu.Unlock()

		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// settle applies the outcome of one attempt. Callers hold q.mu.
// Returns stop=true when the pass must end.
//
// Memory state is updated even if persisting fails: the in-process queue
// stays authoritative, and a stale disk record can only cause a redundant
// retry, which idempotent dispatch absorbs.
func (q *Queue) settle(ctx context.Context, action model.OfflineAction, dispatchErr error, rep *Report) (stop bool, err error) {
	idx := -1
	for i, a := range q.pending {
		if a.ID == action.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	switch {
	case dispatchErr == nil:
		q.pending = removePending(q.pending, idx)
		rep.Succeeded++
		q.logger.Info("action synced", "id", action.ID, "type", action.Type, "entity", action.Entity)

	case action.Retries < q.maxRetries:
		q.pending = append([]model.OfflineAction{}, q.pending...)
		q.pending[idx].Retries++
		rep.Requeued++
		stop = true
		q.logger.Warn("action failed, requeued",
			"id", action.ID,
			"entity", action.Entity,
			"retries", q.pending[idx].Retries,
			"error", dispatchErr,
		)

	default:
		q.pending = removePending(q.pending, idx)
		q.failed = append(append([]model.FailedAction{}, q.failed...), model.FailedAction{
			OfflineAction: action,
			Error:         dispatchErr.Error(),
			LastAttemptAt: q.now().UTC(),
		})
		rep.DeadLettered++
		q.logger.Error("action dead-lettered",
			"id", action.ID,
			"entity", action.Entity,
			"retries", action.Retries,
			"error", dispatchErr,
		)
	}

	if err := q.persist(ctx, q.copyPending(), q.copyFailed()); err != nil {
		return true, fmt.Errorf("drain: persist after %s: %w", action.ID, err)
	}
	return stop, nil
}

func removePending(pending []model.OfflineAction, idx int) []model.OfflineAction {
	out := make([]model.OfflineAction, 0, len(pending)-1)
	out = append(out, pending[:idx]...)
	return append(out, pending[idx+1:]...)
}

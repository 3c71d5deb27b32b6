package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/session"
)

// ActiveSessionName is the fixed key of the session record.
const ActiveSessionName = "active_game"

// Batch is a set of record replacements committed in one transaction.
// Nil fields are left untouched.
type Batch struct {
	// Session replaces the active session record.
	Session *session.Snapshot

	// ClearSession deletes the active session record. Ignored when Session is set.
	ClearSession bool

	// Queue replaces both the pending list and the dead-letter list.
	Queue *QueueState
}

// QueueState is the full queue record.
type QueueState struct {
	Pending []model.OfflineAction
	Failed  []model.FailedAction
}

// Commit applies every replacement in b atomically.
func (s *Store) Commit(ctx context.Context, b Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	switch {
	case b.Session != nil:
		if err := writeSession(ctx, tx, *b.Session); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	case b.ClearSession:
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_records WHERE name = ?`, ActiveSessionName); err != nil {
			return fmt.Errorf("commit: clear session: %w", err)
		}
	}

	if b.Queue != nil {
		if err := writeQueue(ctx, tx, *b.Queue); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadSession reads the active session record.
// Returns found=false when no game is in progress.
func (s *Store) LoadSession(ctx context.Context) (snap session.Snapshot, found bool, err error) {
	var body string
	err = s.db.QueryRowContext(ctx,
		`SELECT body FROM session_records WHERE name = ?`, ActiveSessionName,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Snapshot{}, false, nil
	}
	if err != nil {
		return session.Snapshot{}, false, fmt.Errorf("load session: %w", err)
	}

	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return session.Snapshot{}, false, fmt.Errorf("load session: decode: %w", err)
	}
	return snap, true, nil
}

// SaveQueue replaces the pending and dead-letter lists.
func (s *Store) SaveQueue(ctx context.Context, pending []model.OfflineAction, failed []model.FailedAction) error {
	return s.Commit(ctx, Batch{Queue: &QueueState{Pending: pending, Failed: failed}})
}

// LoadQueue reads the pending list in FIFO order and the dead-letter list in
// the order actions were dead-lettered.
func (s *Store) LoadQueue(ctx context.Context) ([]model.OfflineAction, []model.FailedAction, error) {
	pending, err := s.readPending(ctx)
	if err != nil {
		return nil, nil, err
	}
	failed, err := s.readFailed(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pending, failed, nil
}

func writeSession(ctx context.Context, tx *sql.Tx, snap session.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("write session: encode: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_records (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, ActiveSessionName, string(body), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func writeQueue(ctx context.Context, tx *sql.Tx, q QueueState) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_actions`); err != nil {
		return fmt.Errorf("write queue: clear pending: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM failed_actions`); err != nil {
		return fmt.Errorf("write queue: clear failed: %w", err)
	}

	for i, a := range q.Pending {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pending_actions
			(position, id, type, entity, payload, enqueued_at, retries)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, i, a.ID, string(a.Type), string(a.Entity), payloadText(a.Payload), formatTime(a.EnqueuedAt), a.Retries)
		if err != nil {
			return fmt.Errorf("write queue: pending %s: %w", a.ID, err)
		}
	}

	for i, f := range q.Failed {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failed_actions
			(position, id, type, entity, payload, enqueued_at, retries, error, last_attempt_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, i, f.ID, string(f.Type), string(f.Entity), payloadText(f.Payload), formatTime(f.EnqueuedAt),
			f.Retries, f.Error, formatTime(f.LastAttemptAt))
		if err != nil {
			return fmt.Errorf("write queue: failed %s: %w", f.ID, err)
		}
	}
	return nil
}

func (s *Store) readPending(ctx context.Context) ([]model.OfflineAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, entity, payload, enqueued_at, retries
		FROM pending_actions
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load queue: pending: %w", err)
	}
	defer rows.Close()

	pending := []model.OfflineAction{}
	for rows.Next() {
		var (
			a                        model.OfflineAction
			typ, entity, payload, at string
		)
		if err := rows.Scan(&a.ID, &typ, &entity, &payload, &at, &a.Retries); err != nil {
			return nil, fmt.Errorf("load queue: scan pending: %w", err)
		}
		a.Type = model.ActionType(typ)
		a.Entity = model.Entity(entity)
		a.Payload = json.RawMessage(payload)
		if a.EnqueuedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("load queue: pending %s: %w", a.ID, err)
		}
		pending = append(pending, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load queue: pending: %w", err)
	}
	return pending, nil
}

func (s *Store) readFailed(ctx context.Context) ([]model.FailedAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, entity, payload, enqueued_at, retries, error, last_attempt_at
		FROM failed_actions
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load queue: failed: %w", err)
	}
	defer rows.Close()

	failed := []model.FailedAction{}
	for rows.Next() {
		var (
			f                                model.FailedAction
			typ, entity, payload, at, lastAt string
		)
		if err := rows.Scan(&f.ID, &typ, &entity, &payload, &at, &f.Retries, &f.Error, &lastAt); err != nil {
			return nil, fmt.Errorf("load queue: scan failed: %w", err)
		}
		f.Type = model.ActionType(typ)
		f.Entity = model.Entity(entity)
		f.Payload = json.RawMessage(payload)
		if f.EnqueuedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("load queue: failed %s: %w", f.ID, err)
		}
		if f.LastAttemptAt, err = parseTime(lastAt); err != nil {
			return nil, fmt.Errorf("load queue: failed %s: %w", f.ID, err)
		}
		failed = append(failed, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load queue: failed: %w", err)
	}
	return failed, nil
}

func payloadText(p json.RawMessage) string {
	if len(p) == 0 {
		return "null"
	}
	return string(p)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

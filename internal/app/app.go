package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/huddle/internal/idempotency"
	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/mpr"
	"github.com/roach88/huddle/internal/queue"
	"github.com/roach88/huddle/internal/session"
	"github.com/roach88/huddle/internal/store"
	"github.com/roach88/huddle/internal/syncproto"
)

// Storage is the durable side of the app. *store.Store satisfies it.
type Storage interface {
	Commit(ctx context.Context, b store.Batch) error
	LoadSession(ctx context.Context) (session.Snapshot, bool, error)
	queue.Loader
}

// App owns the active session, its storage, and the outbound queue.
type App struct {
	mu    sync.Mutex
	sess  *session.Session
	store Storage
	queue *queue.Queue

	keys   idempotency.KeyGenerator
	now    func() time.Time
	rules  mpr.Rules
	logger *slog.Logger
}

// Option configures an App.
type Option func(*App)

// WithKeys overrides generation of play idempotency keys and session ids.
// Default: UUIDv7.
func WithKeys(g idempotency.KeyGenerator) Option {
	return func(a *App) { a.keys = g }
}

// WithClock overrides the wall clock used to stamp plays.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithRules sets the league MPR rules. Default: mpr.DefaultRules().
func WithRules(r mpr.Rules) Option {
	return func(a *App) { a.rules = r }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New creates an App. The queue should persist to the same storage; App
// commits queue records through it when a mutation enqueues an action.
// Call Open before use to restore persisted state.
func New(st Storage, q *queue.Queue, opts ...Option) *App {
	a := &App{
		store:  st,
		queue:  q,
		keys:   idempotency.UUIDv7Generator{},
		now:    time.Now,
		rules:  mpr.DefaultRules(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open restores the queue and, if one was persisted, the active session.
func (a *App) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.queue.Load(ctx, a.store); err != nil {
		return fmt.Errorf("open: %w", err)
	}

	snap, found, err := a.store.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if !found {
		a.logger.Info("no active game")
		return nil
	}
	sess, err := session.Restore(snap)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	a.sess = sess
	a.logger.Info("game restored",
		"session_id", sess.ID(),
		"game_id", sess.Meta().GameID,
		"plays", len(snap.History),
	)
	return nil
}

// Queue returns the outbound queue.
func (a *App) Queue() *queue.Queue { return a.queue }

// Rules returns the MPR rules in effect.
func (a *App) Rules() mpr.Rules { return a.rules }

// Active reports whether a game is running.
func (a *App) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess != nil
}

// Snapshot returns the full state of the active game.
func (a *App) Snapshot() (session.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == nil {
		return session.Snapshot{}, ErrNoActiveGame
	}
	return a.sess.Snapshot(), nil
}

// StartGame begins a new game with the collaborator-supplied record and roster.
// A game already in progress is replaced; its queued actions stay in the
// queue and are still delivered.
func (a *App) StartGame(ctx context.Context, meta model.GameMeta, roster []model.PlayerRef) (session.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess != nil {
		a.logger.Warn("replacing active game",
			"session_id", a.sess.ID(),
			"game_id", a.sess.Meta().GameID,
			"plays", len(a.sess.History()),
		)
	}

	sess := session.Start(a.keys.Generate(), meta, roster, a.now())
	snap := sess.Snapshot()
	if err := a.store.Commit(ctx, store.Batch{Session: &snap}); err != nil {
		return session.Snapshot{}, fmt.Errorf("start game %s: %w", meta.GameID, err)
	}
	a.sess = sess

	a.logger.Info("game started",
		"session_id", sess.ID(),
		"game_id", meta.GameID,
		"roster", len(snap.Roster),
	)
	return snap, nil
}

// SetMode switches mode and clears the selection.
func (a *App) SetMode(ctx context.Context, m model.Mode) error {
	return a.mutate(ctx, "set mode", func(s *session.Session) (*outbound, error) {
		s.SetMode(m)
		return nil, nil
	})
}

// Select adds a player to the selection.
func (a *App) Select(ctx context.Context, ids ...model.PlayerID) error {
	return a.mutate(ctx, "select", func(s *session.Session) (*outbound, error) {
		for _, id := range ids {
			if err := s.Select(id); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}

// Deselect removes players from the selection.
func (a *App) Deselect(ctx context.Context, ids ...model.PlayerID) error {
	return a.mutate(ctx, "deselect", func(s *session.Session) (*outbound, error) {
		for _, id := range ids {
			s.Deselect(id)
		}
		return nil, nil
	})
}

// ClearSelection empties the selection.
func (a *App) ClearSelection(ctx context.Context) error {
	return a.mutate(ctx, "clear selection", func(s *session.Session) (*outbound, error) {
		s.ClearSelection()
		return nil, nil
	})
}

// RecordPlay records a play from the current mode, selection, and quarter
// and queues its submission under a fresh idempotency key.
func (a *App) RecordPlay(ctx context.Context, result model.Result, extra map[string]string) (model.PlayEntry, error) {
	var entry model.PlayEntry
	err := a.mutate(ctx, "record play", func(s *session.Session) (*outbound, error) {
		entry = s.RecordPlay(result, extra, a.keys.Generate(), a.now())
		return &outbound{
			typ:     model.ActionCreate,
			entity:  model.EntityPlay,
			payload: syncproto.NewPlaySubmission(s.Meta().GameID, s.ID(), entry),
		}, nil
	})
	if err != nil {
		return model.PlayEntry{}, err
	}

	a.logger.Info("play recorded",
		"play_number", entry.PlayNumber,
		"mode", entry.Mode,
		"result", entry.Result,
		"players", len(entry.Players),
		"key", entry.Key,
	)
	return entry, nil
}

// UndoLastPlay removes the last play and queues its retraction.
// With an empty history it does nothing and returns false.
func (a *App) UndoLastPlay(ctx context.Context) (model.PlayEntry, bool, error) {
	var (
		entry model.PlayEntry
		ok    bool
	)
	err := a.mutate(ctx, "undo", func(s *session.Session) (*outbound, error) {
		entry, ok = s.Undo()
		if !ok {
			return nil, errNoop
		}
		return &outbound{
			typ:    model.ActionDelete,
			entity: model.EntityPlay,
			payload: syncproto.PlayDeletion{
				GameID:         s.Meta().GameID,
				IdempotencyKey: entry.Key,
				PlayNumber:     entry.PlayNumber,
			},
		}, nil
	})
	if err != nil || !ok {
		return model.PlayEntry{}, false, err
	}

	a.logger.Info("play undone", "play_number", entry.PlayNumber, "key", entry.Key)
	return entry, true, nil
}

// SetQuarter assigns the current quarter and queues a game update.
// Setting the current quarter again does nothing and returns false.
func (a *App) SetQuarter(ctx context.Context, q int) (bool, error) {
	changed := false
	err := a.mutate(ctx, "set quarter", func(s *session.Session) (*outbound, error) {
		if q == s.Quarter() {
			return nil, errNoop
		}
		if err := s.SetQuarter(q); err != nil {
			return nil, err
		}
		changed = true
		return &outbound{
			typ:    model.ActionUpdate,
			entity: model.EntityGame,
			payload: syncproto.GameUpdate{
				GameID:  s.Meta().GameID,
				Quarter: &q,
				Status:  syncproto.GameInProgress,
			},
		}, nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// EndGame clears the active session and queues the final score.
// The session record is deleted in the same transaction that queues the
// update.
func (a *App) EndGame(ctx context.Context, final model.Score) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess == nil {
		return fmt.Errorf("end game: %w", ErrNoActiveGame)
	}

	quarter := a.sess.Quarter()
	update := syncproto.GameUpdate{
		GameID:     a.sess.Meta().GameID,
		Quarter:    &quarter,
		FinalScore: &final,
		Status:     syncproto.GameFinal,
	}
	_, err := a.queue.Enqueue(ctx, model.ActionUpdate, model.EntityGame, update,
		queue.WithPersist(func(ctx context.Context, pending []model.OfflineAction, failed []model.FailedAction) error {
			return a.store.Commit(ctx, store.Batch{
				ClearSession: true,
				Queue:        &store.QueueState{Pending: pending, Failed: failed},
			})
		}),
	)
	if err != nil {
		return fmt.Errorf("end game: %w", err)
	}

	a.logger.Info("game ended",
		"session_id", a.sess.ID(),
		"game_id", update.GameID,
		"home", final.Home,
		"away", final.Away,
	)
	a.sess = nil
	return nil
}

// Compliance returns the MPR standing of every eligible player.
func (a *App) Compliance() ([]mpr.PlayerCompliance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == nil {
		return nil, ErrNoActiveGame
	}
	return mpr.Compliance(a.sess, a.rules), nil
}

// Summary returns the MPR summary for the active game.
func (a *App) Summary() (mpr.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == nil {
		return mpr.Summary{}, ErrNoActiveGame
	}
	return mpr.Summarize(a.sess, a.rules), nil
}

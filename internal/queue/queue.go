package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/huddle/internal/idempotency"
	"github.com/roach88/huddle/internal/model"
)

// DefaultMaxRetries is the automatic retry budget per action.
const DefaultMaxRetries = 3

// Status is the overall sync status shown to the operator.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
)

// ActionState is where a single action sits in the state machine.
type ActionState string

const (
	StateQueued   ActionState = "queued"
	StateInFlight ActionState = "in_flight"
	StateFailed   ActionState = "failed"
)

// Dispatcher performs the remote effect of an action.
// Any returned error counts as a failed attempt.
type Dispatcher interface {
	Dispatch(ctx context.Context, a model.OfflineAction) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(ctx context.Context, a model.OfflineAction) error

// Dispatch calls f.
func (f DispatchFunc) Dispatch(ctx context.Context, a model.OfflineAction) error {
	return f(ctx, a)
}

// PersistFunc writes the complete queue record.
type PersistFunc func(ctx context.Context, pending []model.OfflineAction, failed []model.FailedAction) error

// Persister durably stores the queue record. *store.Store satisfies it.
type Persister interface {
	SaveQueue(ctx context.Context, pending []model.OfflineAction, failed []model.FailedAction) error
}

// Loader reads a previously persisted queue record. *store.Store satisfies it.
type Loader interface {
	LoadQueue(ctx context.Context) ([]model.OfflineAction, []model.FailedAction, error)
}

// Report summarizes one drain pass.
type Report struct {
	Attempted    int `json:"attempted"`
	Succeeded    int `json:"succeeded"`
	Requeued     int `json:"requeued"`
	DeadLettered int `json:"dead_lettered"`
}

// State is a point-in-time copy of the queue.
type State struct {
	Pending  []model.OfflineAction `json:"pending"`
	Failed   []model.FailedAction  `json:"failed"`
	Online   bool                  `json:"online"`
	Status   Status                `json:"status"`
	InFlight string                `json:"in_flight,omitempty"`
}

// Queue is the offline operation queue. Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	pending  []model.OfflineAction
	failed   []model.FailedAction
	inFlight string
	online   bool
	status   Status
	lastFail bool

	// drainMu serializes drain passes.
	drainMu sync.Mutex

	dispatcher    Dispatcher
	persist       PersistFunc
	ids           idempotency.KeyGenerator
	now           func() time.Time
	maxRetries    int
	retryInterval time.Duration
	logger        *slog.Logger

	running atomic.Bool
	signal  chan struct{} // buffered, size 1
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxRetries sets the automatic retry budget. Default: 3.
func WithMaxRetries(n int) Option {
	return func(q *Queue) { q.maxRetries = n }
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithIDGenerator overrides action id generation. Default: UUIDv7.
func WithIDGenerator(g idempotency.KeyGenerator) Option {
	return func(q *Queue) { q.ids = g }
}

// WithRetryInterval makes a running worker re-drain periodically so requeued
// actions are retried without a new trigger. Zero disables the timer.
func WithRetryInterval(d time.Duration) Option {
	return func(q *Queue) { q.retryInterval = d }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithOnline sets the initial connectivity state. Default: offline.
func WithOnline(online bool) Option {
	return func(q *Queue) { q.online = online }
}

// New creates an empty queue that dispatches through d and persists through p.
func New(d Dispatcher, p Persister, opts ...Option) *Queue {
	q := &Queue{
		pending:    []model.OfflineAction{},
		failed:     []model.FailedAction{},
		status:     StatusIdle,
		dispatcher: d,
		persist:    p.SaveQueue,
		ids:        idempotency.UUIDv7Generator{},
		now:        time.Now,
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
		signal:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Load replaces in-memory state with the persisted record. Call before Run.
func (q *Queue) Load(ctx context.Context, l Loader) error {
	pending, failed, err := l.LoadQueue(ctx)
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append([]model.OfflineAction{}, pending...)
	q.failed = append([]model.FailedAction{}, failed...)
	q.refreshStatus()

	q.logger.Info("queue loaded", "pending", len(q.pending), "failed", len(q.failed))
	return nil
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueConfig)

type enqueueConfig struct {
	persist PersistFunc
}

// WithPersist replaces the queue's persister for this one write. Callers use
// it to commit the queue record in the same transaction as other state.
func WithPersist(fn PersistFunc) EnqueueOption {
	return func(c *enqueueConfig) { c.persist = fn }
}

// Enqueue appends a new action with a fresh id, the current time, and zero
// retries. The payload is JSON encoded. If the queue is online a drain is
// triggered. The returned error reports encoding or persistence failure only;
// on error nothing was enqueued.
func (q *Queue) Enqueue(ctx context.Context, typ model.ActionType, entity model.Entity, payload any, opts ...EnqueueOption) (model.OfflineAction, error) {
	cfg := enqueueConfig{persist: q.persist}
	for _, opt := range opts {
		opt(&cfg)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.OfflineAction{}, fmt.Errorf("enqueue %s %s: encode payload: %w", typ, entity, err)
	}

	q.mu.Lock()
	action := model.OfflineAction{
		ID:         q.ids.Generate(),
		Type:       typ,
		Entity:     entity,
		Payload:    body,
		EnqueuedAt: q.now().UTC(),
	}
	next := append(append([]model.OfflineAction{}, q.pending...), action)
	if err := cfg.persist(ctx, next, q.copyFailed()); err != nil {
		q.mu.Unlock()
		return model.OfflineAction{}, fmt.Errorf("enqueue %s %s: %w", typ, entity, err)
	}
	q.pending = next
	online := q.online
	q.mu.Unlock()

	q.logger.Debug("action enqueued", "id", action.ID, "type", action.Type, "entity", action.Entity)

	if online {
		q.trigger(ctx)
	}
	return action, nil
}

// SetOnline records connectivity. A transition to online triggers a drain.
func (q *Queue) SetOnline(ctx context.Context, online bool) {
	q.mu.Lock()
	was := q.online
	q.online = online
	q.mu.Unlock()

	if was == online {
		return
	}
	q.logger.Info("connectivity changed", "online", online)
	if online {
		q.trigger(ctx)
	}
}

// OnConnectivityRestored marks the queue online and triggers a drain.
func (q *Queue) OnConnectivityRestored(ctx context.Context) {
	q.SetOnline(ctx, true)
}

// Online reports the current connectivity state.
func (q *Queue) Online() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// Retry moves a dead-lettered action back to the tail of the queue with its
// retry count reset, then triggers a drain if online.
func (q *Queue) Retry(ctx context.Context, id string) error {
	q.mu.Lock()
	idx := q.failedIndex(id)
	if idx < 0 {
		q.mu.Unlock()
		return fmt.Errorf("retry %s: %w", id, ErrNotFound)
	}

	action := q.failed[idx].OfflineAction
	action.Retries = 0
	action.EnqueuedAt = q.now().UTC()

	failed := removeFailed(q.failed, idx)
	pending := append(append([]model.OfflineAction{}, q.pending...), action)
	if err := q.persist(ctx, pending, failed); err != nil {
		q.mu.Unlock()
		return fmt.Errorf("retry %s: %w", id, err)
	}
	q.pending, q.failed = pending, failed
	q.refreshStatus()
	online := q.online
	q.mu.Unlock()

	q.logger.Info("failed action requeued", "id", id, "entity", action.Entity)

	if online {
		q.trigger(ctx)
	}
	return nil
}

// Discard drops a dead-lettered action permanently.
func (q *Queue) Discard(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.failedIndex(id)
	if idx < 0 {
		return fmt.Errorf("discard %s: %w", id, ErrNotFound)
	}
	failed := removeFailed(q.failed, idx)
	if err := q.persist(ctx, q.copyPending(), failed); err != nil {
		return fmt.Errorf("discard %s: %w", id, err)
	}
	q.failed = failed
	q.refreshStatus()

	q.logger.Info("failed action discarded", "id", id)
	return nil
}

// Snapshot returns a copy of the queue state.
func (q *Queue) Snapshot() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return State{
		Pending:  q.copyPending(),
		Failed:   q.copyFailed(),
		Online:   q.online,
		Status:   q.status,
		InFlight: q.inFlight,
	}
}

// Status returns the overall sync status.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// StateOf reports where the action with the given id sits.
// Returns false once a succeeded action has been removed.
func (q *Queue) StateOf(id string) (ActionState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight == id {
		return StateInFlight, true
	}
	for _, a := range q.pending {
		if a.ID == id {
			return StateQueued, true
		}
	}
	if q.failedIndex(id) >= 0 {
		return StateFailed, true
	}
	return "", false
}

// refreshStatus recomputes status outside a pass. Callers hold q.mu.
func (q *Queue) refreshStatus() {
	if q.status == StatusSyncing {
		return
	}
	if q.lastFail || len(q.failed) > 0 {
		q.status = StatusError
		return
	}
	q.status = StatusIdle
}

func (q *Queue) failedIndex(id string) int {
	for i, f := range q.failed {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) copyPending() []model.OfflineAction {
	return append([]model.OfflineAction{}, q.pending...)
}

func (q *Queue) copyFailed() []model.FailedAction {
	return append([]model.FailedAction{}, q.failed...)
}

func removeFailed(failed []model.FailedAction, idx int) []model.FailedAction {
	out := make([]model.FailedAction, 0, len(failed)-1)
	out = append(out, failed[:idx]...)
	return append(out, failed[idx+1:]...)
}

package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/huddle/internal/app"
	"github.com/roach88/huddle/internal/config"
	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/queue"
	"github.com/roach88/huddle/internal/remote"
	"github.com/roach88/huddle/internal/store"
	"github.com/roach88/huddle/internal/syncproto"
	"github.com/roach88/huddle/internal/testutil"
)

// Harness is the scenario execution environment: one device (store, queue,
// app) and one remote acceptor behind a fault injector.
type Harness struct {
	scenario *Scenario
	rules    config.Rules

	store    *store.Store
	acceptor *remote.SQLiteAcceptor
	remote   *testutil.FlakyRemote

	clock     *testutil.DeterministicClock
	keys      *testutil.SequentialKeys
	actionIDs *testutil.SequentialKeys
	logger    *slog.Logger

	queue *queue.Queue
	app   *app.App
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against fresh in-memory databases for isolation.
// Execution flow:
//  1. Open the device store and the remote acceptor
//  2. Build the queue and app and restore persisted state
//  3. Execute steps, recording one trace event per step
//  4. Evaluate assertions against the final state
//
// The returned error reports a harness failure (a database that will not
// open); step and assertion failures are recorded in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	rules := config.DefaultRules()
	if scenario.Rules != nil {
		if scenario.Rules.MPRPercent != nil {
			rules.MPRPercent = *scenario.Rules.MPRPercent
		}
		if scenario.Rules.MaxRetries != nil {
			rules.MaxRetries = *scenario.Rules.MaxRetries
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	clock := testutil.NewDeterministicClock()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	acc, err := remote.OpenSQLite(":memory:",
		remote.WithPlayIDs(testutil.NewSequentialKeys("play")),
		remote.WithAcceptorClock(clock.Now),
		remote.WithAcceptorLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory acceptor: %w", err)
	}
	defer acc.Close()

	h := &Harness{
		scenario:  scenario,
		rules:     rules,
		store:     st,
		acceptor:  acc,
		remote:    testutil.NewFlakyRemote(acc),
		clock:     clock,
		keys:      testutil.NewSequentialKeys("key"),
		actionIDs: testutil.NewSequentialKeys("act"),
		logger:    logger,
	}
	if err := h.boot(ctx); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		outcome, stepErr := h.execute(ctx, step)
		checkExpectation(result, i, step, stepErr)

		event, err := h.observe(ctx, i+1, step.Op, outcome)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		result.Trace = append(result.Trace, event)
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(ctx, a); err != nil {
			result.AddError(fmt.Sprintf("assertion %d: %v", i+1, err))
		}
	}
	return result, nil
}

// boot builds the queue and app on the existing store and restores the
// persisted session and queue. A booted device starts offline.
func (h *Harness) boot(ctx context.Context) error {
	h.queue = queue.New(syncproto.NewDispatcher(h.remote, h.logger), h.store,
		queue.WithMaxRetries(h.rules.MaxRetries),
		queue.WithClock(h.clock.Now),
		queue.WithIDGenerator(h.actionIDs),
		queue.WithLogger(h.logger),
	)
	h.app = app.New(h.store, h.queue,
		app.WithKeys(h.keys),
		app.WithClock(h.clock.Now),
		app.WithRules(h.rules.MPR()),
		app.WithLogger(h.logger),
	)
	if err := h.app.Open(ctx); err != nil {
		return fmt.Errorf("failed to open app: %w", err)
	}
	return nil
}

// execute runs one step. The outcome is "noop" when the step changed nothing.
func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	err := h.apply(ctx, step)
	switch {
	case errors.Is(err, errNoop):
		return OutcomeNoop, nil
	case err != nil:
		return OutcomeError, err
	default:
		return OutcomeOK, nil
	}
}

var errNoop = errors.New("no-op")

func (h *Harness) apply(ctx context.Context, step Step) error {
	switch step.Op {
	case OpStart:
		_, err := h.app.StartGame(ctx, h.scenario.Game, h.scenario.Roster)
		return err
	case OpEnd:
		return h.app.EndGame(ctx, *step.Score)
	case OpRestart:
		return h.boot(ctx)

	case OpMode:
		m, err := model.ParseMode(step.Mode)
		if err != nil {
			return err
		}
		return h.app.SetMode(ctx, m)
	case OpSelect:
		return h.app.Select(ctx, playerIDs(step.Players)...)
	case OpDeselect:
		return h.app.Deselect(ctx, playerIDs(step.Players)...)
	case OpClear:
		return h.app.ClearSelection(ctx)

	case OpRecord:
		r, err := model.ParseResult(step.Result)
		if err != nil {
			return err
		}
		_, err = h.app.RecordPlay(ctx, r, step.Extra)
		return err
	case OpUndo:
		_, ok, err := h.app.UndoLastPlay(ctx)
		if err == nil && !ok {
			return errNoop
		}
		return err
	case OpQuarter:
		changed, err := h.app.SetQuarter(ctx, step.Quarter)
		if err == nil && !changed {
			return errNoop
		}
		return err

	case OpOnline:
		h.queue.OnConnectivityRestored(ctx)
		return nil
	case OpOffline:
		h.queue.SetOnline(ctx, false)
		return nil
	case OpDrain:
		_, err := h.queue.Drain(ctx)
		return err
	case OpRetry:
		return h.queue.Retry(ctx, step.Action)
	case OpDiscard:
		return h.queue.Discard(ctx, step.Action)

	case OpFailNext:
		h.remote.FailNext(step.Count)
		return nil
	case OpDropAcks:
		h.remote.DropNextAcks(step.Count)
		return nil
	case OpRemoteDown:
		h.remote.SetDown(true)
		return nil
	case OpRemoteUp:
		h.remote.SetDown(false)
		return nil
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

func checkExpectation(result *Result, i int, step Step, err error) {
	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i+1, step.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got none", i+1, step.Op, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got %v", i+1, step.Op, step.ExpectError, err))
	}
}

// observe captures the state after a step.
func (h *Harness) observe(ctx context.Context, n int, op, outcome string) (TraceEvent, error) {
	qs := h.queue.Snapshot()
	event := TraceEvent{
		Step:    n,
		Op:      op,
		Outcome: outcome,
		Pending: len(qs.Pending),
		Failed:  len(qs.Failed),
		Status:  string(qs.Status),
	}

	if snap, err := h.app.Snapshot(); err == nil {
		event.Active = true
		event.PlayNumber = snap.PlayNumber
	}

	plays, err := h.remotePlays(ctx)
	if err != nil {
		return TraceEvent{}, err
	}
	event.RemotePlays = plays
	return event, nil
}

func (h *Harness) remotePlays(ctx context.Context) (int, error) {
	if h.scenario.Game.GameID == "" {
		return 0, nil
	}
	plays, err := h.acceptor.Plays(ctx, h.scenario.Game.GameID)
	if err != nil {
		return 0, err
	}
	return len(plays), nil
}

func playerIDs(ids []string) []model.PlayerID {
	out := make([]model.PlayerID, len(ids))
	for i, id := range ids {
		out[i] = model.PlayerID(id)
	}
	return out
}

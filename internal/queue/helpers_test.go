package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/huddle/internal/idempotency"
	"github.com/roach88/huddle/internal/model"
)

var fixedNow = time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)

var errRemote = errors.New("remote unavailable")

// memPersister records every write and can be told to fail.
type memPersister struct {
	mu      sync.Mutex
	pending []model.OfflineAction
	failed  []model.FailedAction
	writes  int
	fail    error
}

func (p *memPersister) SaveQueue(_ context.Context, pending []model.OfflineAction, failed []model.FailedAction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.pending = append([]model.OfflineAction{}, pending...)
	p.failed = append([]model.FailedAction{}, failed...)
	p.writes++
	return nil
}

func (p *memPersister) LoadQueue(context.Context) ([]model.OfflineAction, []model.FailedAction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.OfflineAction{}, p.pending...), append([]model.FailedAction{}, p.failed...), nil
}

// scriptedDispatcher fails the first failures[id] attempts of each action
// and records the dispatch order.
type scriptedDispatcher struct {
	mu       sync.Mutex
	failures map[string]int
	always   bool
	calls    []string
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, a model.OfflineAction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, a.ID)
	if d.always {
		return errRemote
	}
	if d.failures[a.ID] > 0 {
		d.failures[a.ID]--
		return errRemote
	}
	return nil
}

func (d *scriptedDispatcher) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.calls...)
}

func newTestQueue(d Dispatcher, p *memPersister, opts ...Option) *Queue {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = fmt.Sprintf("act-%d", i+1)
	}
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(idempotency.NewFixedGenerator(ids...)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(d, p, append(base, opts...)...)
}

type playPayload struct {
	Key string `json:"key"`
}

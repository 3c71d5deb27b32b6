package queue

import (
	"context"
	"time"
)

// Prober checks whether the remote is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// Run is the queue's dedicated worker. It drains on every trigger and, if a
// retry interval is set, periodically while work is pending.
// Blocks until ctx is cancelled.
//
// CRITICAL: at most one worker per queue. While Run is active, triggers
// signal the worker instead of draining inline.
func (q *Queue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer q.running.Store(false)

	var tick <-chan time.Time
	if q.retryInterval > 0 {
		ticker := time.NewTicker(q.retryInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	q.logger.Info("queue worker starting", "retry_interval", q.retryInterval)

	// Work restored from disk drains as soon as we are online.
	q.signalWorker()

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("queue worker stopping: context cancelled")
			return ctx.Err()
		case <-q.signal:
			q.drainLogged(ctx)
		case <-tick:
			q.drainLogged(ctx)
		}
	}
}

// Watch probes connectivity immediately and then every interval, updating
// the online flag. Blocks until ctx is cancelled.
func (q *Queue) Watch(ctx context.Context, p Prober, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		q.probe(ctx, p)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *Queue) probe(ctx context.Context, p Prober) {
	err := p.Ping(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		q.logger.Debug("connectivity probe failed", "error", err)
	}
	q.SetOnline(ctx, err == nil)
}

// trigger asks for a drain: signal the worker if one runs, else drain inline.
func (q *Queue) trigger(ctx context.Context) {
	if q.running.Load() {
		q.signalWorker()
		return
	}
	q.drainLogged(ctx)
}

// signalWorker never blocks; the size-1 buffer coalesces bursts.
func (q *Queue) signalWorker() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue) drainLogged(ctx context.Context) {
	if _, err := q.Drain(ctx); err != nil && ctx.Err() == nil {
		q.logger.Error("drain failed", "error", err)
	}
}

package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/huddle/internal/syncproto"
)

// ErrInjected is returned by FlakyRemote for every injected failure.
var ErrInjected = errors.New("injected remote failure")

// FlakyRemote wraps a syncproto.Remote and injects failures.
//
// Two failure kinds exist:
//   - outage: the call fails without reaching the wrapped remote
//   - lost ack: the call reaches the wrapped remote and is applied, but the
//     caller sees an error, as if the connection dropped before the response
//
// Thread-safety: FlakyRemote is safe for concurrent use via internal mutex.
type FlakyRemote struct {
	mu       sync.Mutex
	next     syncproto.Remote
	down     bool
	failNext int
	dropAcks int
	calls    int
	applied  int
}

// NewFlakyRemote wraps next. It starts healthy.
func NewFlakyRemote(next syncproto.Remote) *FlakyRemote {
	return &FlakyRemote{next: next}
}

// SetDown makes every call fail until set back to false.
func (f *FlakyRemote) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// FailNext makes the next n calls fail without reaching the remote.
func (f *FlakyRemote) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// DropNextAcks makes the next n calls apply but report failure.
func (f *FlakyRemote) DropNextAcks(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropAcks = n
}

// Calls returns how many calls were attempted.
func (f *FlakyRemote) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Applied returns how many calls reached the wrapped remote.
func (f *FlakyRemote) Applied() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}

// Ping fails while the remote is down. Implements queue.Prober.
func (f *FlakyRemote) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return ErrInjected
	}
	return nil
}

// SubmitPlay implements syncproto.Remote.
func (f *FlakyRemote) SubmitPlay(ctx context.Context, p syncproto.PlaySubmission) (syncproto.PlayResponse, error) {
	var resp syncproto.PlayResponse
	err := f.call(func() error {
		var err error
		resp, err = f.next.SubmitPlay(ctx, p)
		return err
	})
	if err != nil {
		return syncproto.PlayResponse{}, err
	}
	return resp, nil
}

// DeletePlay implements syncproto.Remote.
func (f *FlakyRemote) DeletePlay(ctx context.Context, d syncproto.PlayDeletion) error {
	return f.call(func() error { return f.next.DeletePlay(ctx, d) })
}

// UpdateGame implements syncproto.Remote.
func (f *FlakyRemote) UpdateGame(ctx context.Context, u syncproto.GameUpdate) error {
	return f.call(func() error { return f.next.UpdateGame(ctx, u) })
}

func (f *FlakyRemote) call(apply func() error) error {
	f.mu.Lock()
	f.calls++
	if f.down {
		f.mu.Unlock()
		return ErrInjected
	}
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		return ErrInjected
	}
	drop := f.dropAcks > 0
	if drop {
		f.dropAcks--
	}
	f.applied++
	f.mu.Unlock()

	if err := apply(); err != nil {
		return err
	}
	if drop {
		return ErrInjected
	}
	return nil
}

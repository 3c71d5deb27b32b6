package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/huddle/internal/app"
	"github.com/roach88/huddle/internal/config"
	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/queue"
	"github.com/roach88/huddle/internal/remote"
	"github.com/roach88/huddle/internal/session"
	"github.com/roach88/huddle/internal/store"
	"github.com/roach88/huddle/internal/syncproto"
)

// probeTimeout bounds the connectivity check made before a command.
const probeTimeout = 3 * time.Second

// errNoRemote is the dispatch failure when no remote is configured.
var errNoRemote = errors.New("no remote configured")

// device is the app stack behind one command invocation.
type device struct {
	store  *store.Store
	queue  *queue.Queue
	app    *app.App
	rules  config.Rules
	remote *remote.Client // nil without --remote
}

// openDevice loads rules, opens the device database, and restores the
// session and queue. With probe set, the remote is pinged first and the
// queue starts online if it answered; otherwise the queue starts offline.
func openDevice(ctx context.Context, opts *RootOptions, probe bool) (*device, error) {
	rules, err := config.LoadRules(opts.RulesPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	d := &device{store: st, rules: rules}

	var dispatcher queue.Dispatcher = queue.DispatchFunc(func(context.Context, model.OfflineAction) error {
		return errNoRemote
	})
	if opts.RemoteURL != "" {
		d.remote = remote.NewClient(opts.RemoteURL)
		dispatcher = syncproto.NewDispatcher(d.remote, slog.Default())
	}

	online := probe && d.reachable(ctx)
	d.queue = queue.New(dispatcher, st,
		queue.WithMaxRetries(rules.MaxRetries),
		queue.WithRetryInterval(rules.RetryInterval),
		queue.WithOnline(online),
		queue.WithLogger(slog.Default()),
	)
	d.app = app.New(st, d.queue,
		app.WithRules(rules.MPR()),
		app.WithLogger(slog.Default()),
	)
	if err := d.app.Open(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to restore device state", err)
	}
	return d, nil
}

// reachable pings the remote once. An unreachable remote is not an error:
// the device keeps working offline.
func (d *device) reachable(ctx context.Context) bool {
	if d.remote == nil {
		return false
	}
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := d.remote.Ping(pctx); err != nil {
		slog.Warn("remote unreachable, working offline", "error", err)
		return false
	}
	return true
}

func (d *device) Close() {
	if err := d.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// withDevice opens the device, runs fn, and closes it. With probe set the
// device goes online when the remote answers, and the next enqueue or
// retry drains everything pending.
func withDevice(cmd *cobra.Command, opts *RootOptions, probe bool, fn func(ctx context.Context, d *device, f *OutputFormatter) error) error {
	f := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	d, err := openDevice(ctx, opts, probe)
	if err != nil {
		code := ErrCodeStorage
		var rulesErr *config.RulesError
		if errors.As(err, &rulesErr) {
			code = ErrCodeRules
		}
		_ = f.Error(code, err.Error(), nil)
		return err
	}
	defer d.Close()

	return fn(ctx, d, f)
}

// failApp maps an app error to an exit code and reports it.
func failApp(f *OutputFormatter, message string, err error) error {
	switch {
	case errors.Is(err, app.ErrNoActiveGame):
		return f.Fail(ExitFailure, ErrCodeNoGame, message, err)
	case errors.Is(err, session.ErrUnknownPlayer), errors.Is(err, session.ErrInvalidQuarter):
		return f.Fail(ExitCommandError, ErrCodeInput, message, err)
	case errors.Is(err, queue.ErrNotFound):
		return f.Fail(ExitCommandError, ErrCodeNotFound, message, err)
	default:
		return f.Fail(ExitFailure, ErrCodeStorage, message, err)
	}
}

func playerIDs(args []string) []model.PlayerID {
	ids := make([]model.PlayerID, len(args))
	for i, a := range args {
		ids[i] = model.PlayerID(a)
	}
	return ids
}

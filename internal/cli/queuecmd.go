package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/huddle/internal/queue"
)

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and deliver queued changes",
	}
	cmd.AddCommand(newQueueStatusCommand(rootOpts))
	cmd.AddCommand(newQueueSyncCommand(rootOpts))
	cmd.AddCommand(newQueueRetryCommand(rootOpts))
	cmd.AddCommand(newQueueDiscardCommand(rootOpts))
	cmd.AddCommand(newQueueWatchCommand(rootOpts))
	return cmd
}

func newQueueStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "List pending and failed actions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				return f.Success(newQueueView(d.queue.Snapshot(), nil))
			})
		},
	}
}

func newQueueSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one delivery pass against the remote",
		Long: `Probe the remote and, if it answers, deliver queued actions in order.

A failed action is retried on a later pass; after its retries are spent it
moves to the failed list for "huddle queue retry" or "huddle queue discard".

Exit codes:
  0 - Queue is empty or every attempted action was delivered
  1 - Remote unreachable, or failed actions remain`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, true, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if d.remote == nil {
					return f.Fail(ExitCommandError, ErrCodeRemote, "no remote configured (use --remote)", nil)
				}
				if !d.queue.Online() {
					return f.Fail(ExitFailure, ErrCodeRemote, "remote unreachable", nil)
				}
				f.VerboseLog("Delivering %d pending action(s) to %s", len(d.queue.Snapshot().Pending), rootOpts.RemoteURL)
				rep, err := d.queue.Drain(ctx)
				if err != nil {
					return failApp(f, "sync failed", err)
				}
				state := d.queue.Snapshot()
				if err := f.Success(newQueueView(state, &rep)); err != nil {
					return err
				}
				if state.Status == queue.StatusError {
					return NewExitError(ExitFailure, fmt.Sprintf("%d pending, %d failed", len(state.Pending), len(state.Failed)))
				}
				return nil
			})
		},
	}
}

func newQueueRetryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "retry <action-id>",
		Short:         "Move a failed action back to the queue",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, true, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if err := d.queue.Retry(ctx, args[0]); err != nil {
					return failApp(f, "failed to retry", err)
				}
				return f.Success(newQueueView(d.queue.Snapshot(), nil))
			})
		},
	}
}

func newQueueDiscardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "discard <action-id>",
		Short:         "Drop a failed action permanently",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if err := d.queue.Discard(ctx, args[0]); err != nil {
					return failApp(f, "failed to discard", err)
				}
				return f.Success(newQueueView(d.queue.Snapshot(), nil))
			})
		},
	}
}

func newQueueWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Deliver queued actions in the background until interrupted",
		Long: `Run the queue worker: probe the remote every probe_interval, drain when
it answers, and re-drain every retry_interval while work is pending.

Press Ctrl-C to stop.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, false, func(_ context.Context, d *device, f *OutputFormatter) error {
				if d.remote == nil {
					return f.Fail(ExitCommandError, ErrCodeRemote, "no remote configured (use --remote)", nil)
				}
				ctx, cancel := signalContext(cmd)
				defer cancel()

				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (probe every %s). Press Ctrl-C to stop.\n",
					rootOpts.RemoteURL, d.rules.ProbeInterval)

				var wg sync.WaitGroup
				errs := make([]error, 2)
				wg.Add(2)
				go func() {
					defer wg.Done()
					errs[0] = d.queue.Run(ctx)
				}()
				go func() {
					defer wg.Done()
					errs[1] = d.queue.Watch(ctx, d.remote, d.rules.ProbeInterval)
				}()
				wg.Wait()

				for _, err := range errs {
					if err != nil && !errors.Is(err, context.Canceled) {
						return WrapExitError(ExitFailure, "queue worker error", err)
					}
				}
				return f.Success(newQueueView(d.queue.Snapshot(), nil))
			})
		},
	}
}

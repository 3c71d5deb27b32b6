package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/huddle/internal/model"
)

// NewModeCommand creates the mode command.
func NewModeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "mode <offense|defense|special>",
		Short:         "Switch mode; clears the selection",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			m, err := model.ParseMode(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "invalid mode", err)
			}
			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if err := d.app.SetMode(ctx, m); err != nil {
					return failApp(f, "failed to set mode", err)
				}
				return showGame(d, f)
			})
		},
	}
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "select <player-id>...",
		Short:         "Add players to the selection",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if err := d.app.Select(ctx, playerIDs(args)...); err != nil {
					return failApp(f, "failed to select", err)
				}
				return showGame(d, f)
			})
		},
	}
}

// NewDeselectCommand creates the deselect command.
func NewDeselectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "deselect <player-id>...",
		Short:         "Remove players from the selection",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if err := d.app.Deselect(ctx, playerIDs(args)...); err != nil {
					return failApp(f, "failed to deselect", err)
				}
				return showGame(d, f)
			})
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Empty the selection",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if err := d.app.ClearSelection(ctx); err != nil {
					return failApp(f, "failed to clear selection", err)
				}
				return showGame(d, f)
			})
		},
	}
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	var extra map[string]string
	cmd := &cobra.Command{
		Use:   "record <result>",
		Short: "Record a play from the current mode and selection",
		Long: `Record a play. The selected players are credited, the selection is
cleared, and the play is queued for the remote under a fresh idempotency key.

Results: run, completion, incompletion, sack, interception, fumble,
touchdown, penalty, punt, kickoff, field_goal, extra_point,
turnover_on_downs, tackle, other.

Example:
  huddle record completion --extra yards=12`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			result, err := model.ParseResult(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "invalid result", err)
			}
			return withDevice(cmd, rootOpts, true, func(ctx context.Context, d *device, f *OutputFormatter) error {
				entry, err := d.app.RecordPlay(ctx, result, extra)
				if err != nil {
					return failApp(f, "failed to record play", err)
				}
				return f.Success(playView{
					Action: "recorded",
					Play:   entry,
					Queue:  newQueueSummary(d.queue.Snapshot()),
				})
			})
		},
	}
	cmd.Flags().StringToStringVar(&extra, "extra", nil, "extra play fields (key=value,...)")
	return cmd
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "undo",
		Short:         "Remove the last play and retract it remotely",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, true, func(ctx context.Context, d *device, f *OutputFormatter) error {
				entry, ok, err := d.app.UndoLastPlay(ctx)
				if err != nil {
					return failApp(f, "failed to undo", err)
				}
				if !ok {
					return f.Success(messageView{
						Message: "Nothing to undo",
						Queue:   newQueueSummary(d.queue.Snapshot()),
					})
				}
				return f.Success(playView{
					Action: "undone",
					Play:   entry,
					Queue:  newQueueSummary(d.queue.Snapshot()),
				})
			})
		},
	}
}

// NewQuarterCommand creates the quarter command.
func NewQuarterCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quarter <n>",
		Short: "Set the current quarter",
		Long: `Set the current quarter. Quarters past the league's regulation count
are overtime periods.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			q, err := strconv.Atoi(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("invalid quarter %q", args[0]), nil)
			}
			return withDevice(cmd, rootOpts, true, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if _, err := d.app.SetQuarter(ctx, q); err != nil {
					return failApp(f, "failed to set quarter", err)
				}
				return showGame(d, f)
			})
		},
	}
}

func showGame(d *device, f *OutputFormatter) error {
	snap, err := d.app.Snapshot()
	if err != nil {
		return failApp(f, "failed to read game", err)
	}
	return f.Success(newGameView(snap, d.rules.Quarters))
}

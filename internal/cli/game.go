package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/huddle/internal/model"
)

// NewGameCommand creates the game command group.
func NewGameCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Start, inspect, and end the active game",
	}
	cmd.AddCommand(newGameStartCommand(rootOpts))
	cmd.AddCommand(newGameShowCommand(rootOpts))
	cmd.AddCommand(newGameEndCommand(rootOpts))
	return cmd
}

func newGameStartCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <game-file>",
		Short: "Start a game from a game record and roster",
		Long: `Start a game from a YAML file holding the game record and roster.

Example game file:
  game:
    game_id: 2026-09-12-hawks
    opponent: Hawks
  roster:
    - { id: p5, jersey: 5, name: Ava, eligible: true }
    - { id: p70, jersey: 70, name: Cal, eligible: false }`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			gf, err := LoadGameFile(args[0])
			if err != nil {
				var loadErr *LoadError
				if errors.As(err, &loadErr) {
					return f.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
				}
				return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to load game file", err)
			}
			f.VerboseLog("Loaded game %s with %d players from %s", gf.Game.GameID, len(gf.Roster), args[0])

			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				snap, err := d.app.StartGame(ctx, gf.Game, gf.Roster)
				if err != nil {
					return failApp(f, "failed to start game", err)
				}
				return f.Success(newGameView(snap, d.rules.Quarters))
			})
		},
	}
}

func newGameShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the active game and participation",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				snap, err := d.app.Snapshot()
				if err != nil {
					return failApp(f, "failed to show game", err)
				}
				return f.Success(newGameView(snap, d.rules.Quarters))
			})
		},
	}
}

func newGameEndCommand(rootOpts *RootOptions) *cobra.Command {
	var score model.Score
	cmd := &cobra.Command{
		Use:   "end",
		Short: "End the game and send the final score",
		Long: `End the active game. The final score is queued for the remote and the
session is cleared from the device.

Example:
  huddle game end --home 21 --away 14`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, true, func(ctx context.Context, d *device, f *OutputFormatter) error {
				if err := d.app.EndGame(ctx, score); err != nil {
					return failApp(f, "failed to end game", err)
				}
				return f.Success(messageView{
					Message: fmt.Sprintf("Game over: %d-%d", score.Home, score.Away),
					Queue:   newQueueSummary(d.queue.Snapshot()),
				})
			})
		},
	}
	cmd.Flags().IntVar(&score.Home, "home", 0, "home score (required)")
	cmd.Flags().IntVar(&score.Away, "away", 0, "away score (required)")
	_ = cmd.MarkFlagRequired("home")
	_ = cmd.MarkFlagRequired("away")
	return cmd
}

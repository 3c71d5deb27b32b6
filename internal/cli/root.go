package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/huddle/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Database  string // device database
	RemoteURL string // remote acceptor base URL; empty works offline
	RulesPath string // league rules file; empty uses defaults
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the huddle CLI.
// env supplies flag defaults; see config.LoadEnv.
func NewRootCommand(env config.Env) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "huddle",
		Short: "Huddle - sideline scorekeeping",
		Long: `Record plays from the sideline, keep every player's participation exact,
and deliver each change to the league server once connectivity allows.

Every command works offline. Changes are queued on the device and sent
when the remote answers.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", env.DBPath, "path to the device database (env "+config.EnvDB+")")
	cmd.PersistentFlags().StringVar(&opts.RemoteURL, "remote", env.RemoteURL, "remote acceptor URL (env "+config.EnvRemoteURL+")")
	cmd.PersistentFlags().StringVar(&opts.RulesPath, "rules", env.RulesPath, "league rules file (env "+config.EnvRules+")")

	cmd.AddCommand(NewGameCommand(opts))
	cmd.AddCommand(NewModeCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewDeselectCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewUndoCommand(opts))
	cmd.AddCommand(NewQuarterCommand(opts))
	cmd.AddCommand(NewMPRCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewServeCommand(opts, env))
	cmd.AddCommand(NewScenarioCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

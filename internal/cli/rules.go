package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/huddle/internal/config"
)

// rulesView is the effective rules after defaults are applied.
type rulesView struct {
	Source        string `json:"source"`
	MPRPercent    int    `json:"mpr_percent"`
	MaxRetries    int    `json:"max_retries"`
	RetryInterval string `json:"retry_interval"`
	ProbeInterval string `json:"probe_interval"`
	Quarters      int    `json:"quarters"`
}

func (v rulesView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, `Rules from %s
  mpr_percent:    %d
  max_retries:    %d
  retry_interval: %s
  probe_interval: %s
  quarters:       %d
`, v.Source, v.MPRPercent, v.MaxRetries, v.RetryInterval, v.ProbeInterval, v.Quarters)
	return err
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules [file]",
		Short: "Validate a league rules file and show the effective rules",
		Long: `Validate a CUE league rules file against the rules schema and print the
effective values. Without an argument the --rules file is checked; without
either, the built-in defaults are shown.

Example rules file:
  mpr_percent: 12
  max_retries: 5
  retry_interval: "1m"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			path := rootOpts.RulesPath
			if len(args) == 1 {
				path = args[0]
			}

			rules, err := config.LoadRules(path)
			if err != nil {
				var rulesErr *config.RulesError
				if errors.As(err, &rulesErr) {
					var details any
					if pos := rulesErr.Details(); pos != nil {
						details = pos
					}
					if outErr := f.Error(ErrCodeRules, "invalid rules: "+rulesErr.Error(), details); outErr != nil {
						return outErr
					}
					return WrapExitError(ExitFailure, "invalid rules", rulesErr)
				}
				return f.Fail(ExitCommandError, ErrCodeNotFound, "failed to read rules", err)
			}

			source := path
			if source == "" {
				source = "defaults"
			}
			return f.Success(rulesView{
				Source:        source,
				MPRPercent:    rules.MPRPercent,
				MaxRetries:    rules.MaxRetries,
				RetryInterval: rules.RetryInterval.String(),
				ProbeInterval: rules.ProbeInterval.String(),
				Quarters:      rules.Quarters,
			})
		},
	}
}

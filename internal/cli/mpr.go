package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewMPRCommand creates the mpr command.
func NewMPRCommand(rootOpts *RootOptions) *cobra.Command {
	var belowOnly bool
	cmd := &cobra.Command{
		Use:   "mpr",
		Short: "Show minimum play requirement compliance",
		Long: `Show each eligible player's share of offensive plays against the
league minimum, and how many more plays each player still needs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, rootOpts, false, func(ctx context.Context, d *device, f *OutputFormatter) error {
				rows, err := d.app.Compliance()
				if err != nil {
					return failApp(f, "failed to compute compliance", err)
				}
				sum, err := d.app.Summary()
				if err != nil {
					return failApp(f, "failed to compute compliance", err)
				}

				view := newComplianceView(rows, sum, d.app.Rules())
				if belowOnly {
					kept := view.Players[:0]
					for _, r := range view.Players {
						if !r.MeetsMinimum {
							kept = append(kept, r)
						}
					}
					view.Players = kept
				}
				return f.Success(view)
			})
		},
	}
	cmd.Flags().BoolVar(&belowOnly, "below", false, "list only players below the minimum")
	return cmd
}

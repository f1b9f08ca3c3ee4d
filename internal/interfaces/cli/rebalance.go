package cli

import (
	"github.com/spf13/cobra"
)

func newRebalanceRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance-run",
		Short: "Run one scheduled-rebalance pass and exit",
		Long: "Pulls every current portfolio version whose rebalance date has passed, " +
			"re-optimizes entitled owners, and emits notifications. One-shot; the " +
			"worker binary owns the periodic loop.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Scheduler.RunScheduled(cmd.Context())
		},
	}
}

func newDrawdownScanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drawdown-scan",
		Short: "Run one drawdown scan and exit",
		Long: "Valuates every unnotified current portfolio version against live quotes " +
			"and emits a one-shot drawdown alert for versions past the loss threshold.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Scheduler.RunDrawdownScan(cmd.Context())
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := opts.buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.MigrateUp()
		},
	}
}

package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/folira/folira/internal/domain/allocation"
	"github.com/folira/folira/pkg/types/common"
)

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	var (
		symbols   string
		riskScore int
		from      string
		to        string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run one allocation and print the weights",
		Long: "Runs the optimization pipeline for the given risk score. With --symbols " +
			"the explicit list is used; otherwise the liquid ETF universe is fetched.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile := allocation.RiskProfile(riskScore)
			if err := profile.Validate(); err != nil {
				return err
			}

			app, err := opts.buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			if len(symbols) == 0 {
				out, err := app.Engine.OptimizeUniverse(ctx, profile)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			}

			window, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			list := strings.Split(symbols, ",")
			for i := range list {
				list[i] = strings.TrimSpace(list[i])
			}

			out, err := app.Engine.Optimize(ctx, list, profile, window[0], window[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&symbols, "symbols", "", "comma-separated symbols (defaults to the liquid universe)")
	cmd.Flags().IntVar(&riskScore, "risk-score", 3, "risk score 1..5")
	cmd.Flags().StringVar(&from, "from", "", "lookback start (YYYY-MM-DD, defaults to 5 years back)")
	cmd.Flags().StringVar(&to, "to", "", "lookback end (YYYY-MM-DD, defaults to today)")

	return cmd
}

func parseWindow(fromStr, toStr string) ([2]common.Date, error) {
	to := common.DateOf(time.Now())
	if toStr != "" {
		parsed, err := common.ParseDate(toStr)
		if err != nil {
			return [2]common.Date{}, err
		}
		to = parsed
	}

	from := to.AddYears(-5)
	if fromStr != "" {
		parsed, err := common.ParseDate(fromStr)
		if err != nil {
			return [2]common.Date{}, err
		}
		from = parsed
	}
	return [2]common.Date{from, to}, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	reportpkg "SentimentLedger/internal/report"
)

var reportStats bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the experiment report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return report(err)
		}
		defer a.Close()

		text, err := reportpkg.Render(a.store, a.cfg.Instrument.Symbol)
		if err != nil {
			return report(err)
		}
		fmt.Fprint(cmd.OutOrStdout(), text)

		if reportStats {
			stats, err := reportpkg.RenderStats(a.store)
			if err != nil {
				return report(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), "\n"+stats)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportStats, "stats", false, "Append range, return and drawdown per ledger")
	rootCmd.AddCommand(reportCmd)
}

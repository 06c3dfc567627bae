package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"SentimentLedger/internal/strategy"
)

var (
	initShares int64
	initTotal  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed both ledgers from the latest daily bar",
	Long: `Fetches the most recent bar and writes the first record of the experiment
and control ledgers. Refuses to touch ledgers that already hold records.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Int64Var(&initShares, "shares", 0, "Seed position in shares (default ledger.seed_shares)")
	initCmd.Flags().StringVar(&initTotal, "total", "", "Seed with an explicit total instead of shares x close")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return report(err)
	}
	defer a.Close()

	res, err := a.collector.NextAvailableBar(ctx)
	if err != nil {
		return report(fmt.Errorf("fetch price: %w", err))
	}

	now := time.Now()
	var total decimal.Decimal
	if initTotal != "" {
		t, err := decimal.NewFromString(initTotal)
		if err != nil || !t.IsPositive() {
			return report(fmt.Errorf("invalid --total %q", initTotal))
		}
		if _, err := strategy.SeedTotal(a.store, res.Bar, t, now); err != nil {
			return report(err)
		}
		total = t
	} else {
		shares := initShares
		if shares <= 0 {
			shares = a.cfg.Ledger.SeedShares
		}
		seed, err := strategy.Seed(a.store, res.Bar, shares, now)
		if err != nil {
			return report(err)
		}
		total = seed.Total
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s on bar %s: open %s close %s total %s\n",
		a.cfg.Instrument.Symbol, res.Date, res.Bar.Open, res.Bar.Close, total)
	return nil
}

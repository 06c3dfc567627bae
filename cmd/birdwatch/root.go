package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "birdwatch",
	Short: "Run one day of the sentiment-gated investment experiment",
	Long: `birdwatch fetches the latest daily bar, classifies the collected posts and
appends one record to the experiment and control ledgers.

Run without a subcommand to execute a single cycle.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCycle,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $CONFIG_PATH or configs/config.yaml)")
}

func runCycle(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return report(err)
	}
	defer a.Close()

	sched, err := a.scheduler(ctx)
	if err != nil {
		return report(err)
	}
	cycle, err := sched.RunCycle(ctx)
	if err != nil {
		return report(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", cycle.RunID)
	fmt.Fprintf(out, "Bar %s: open %s close %s (%d attempts)\n",
		cycle.Bar.Date, cycle.Bar.Bar.Open, cycle.Bar.Bar.Close, cycle.Bar.Attempts)
	fmt.Fprintf(out, "Verdict: %s (%d posts)\n", cycle.Verdict, cycle.Posts)
	if cycle.VerdictErr != nil {
		fmt.Fprintf(out, "  defaulted: %v\n", cycle.VerdictErr)
	}
	fmt.Fprintf(out, "Experiment: %s -> %s\n", cycle.Outcome.PriorExperiment.Total, cycle.Outcome.Experiment.Total)
	fmt.Fprintf(out, "Control:    %s -> %s\n", cycle.Outcome.PriorControl.Total, cycle.Outcome.Control.Total)
	return nil
}

// report logs a fatal error before cobra turns it into exit status 1.
func report(err error) error {
	log.Error().Err(err).Msg("birdwatch failed")
	fmt.Fprintln(os.Stderr, "error:", err)
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

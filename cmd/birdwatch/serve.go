package main

import (
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

var serveRunOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily cycle on a cron schedule",
	Long:  `Starts the cron daemon and, when Telegram is configured, answers /report, /run and /history.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveRunOnStart, "run-on-start", false, "Run one cycle immediately")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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
	if err := sched.RegisterDaily(a.cfg.Schedule.DailyCron); err != nil {
		return report(err)
	}
	sched.Start()
	defer sched.Stop()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if serveRunOnStart {
		log.Info().Msg("run-on-start enabled, executing daily cycle now")
		go func() {
			if _, err := sched.RunCycle(ctx); err != nil {
				log.Error().Err(err).Msg("startup cycle failed")
			}
		}()
	}

	log.Info().Str("cron", a.cfg.Schedule.DailyCron).Msg("birdwatch is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}

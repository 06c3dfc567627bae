package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"SentimentLedger/internal/sentiment"
)

var (
	evaluateDir   string
	evaluateNGram int
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Train the classifier and report held-out accuracy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return report(err)
		}
		dir := cfg.Sentiment.PolarityDir
		if evaluateDir != "" {
			dir = evaluateDir
		}
		n := cfg.Sentiment.NGram
		if evaluateNGram > 0 {
			n = evaluateNGram
		}

		c, ev, err := sentiment.TrainDir(dir, n, cfg.TestFoldByte())
		if err != nil {
			return report(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Categories: %v\n", c.Categories())
		fmt.Fprintf(out, "Held-out cases: %d\n", ev.Cases)
		fmt.Fprintf(out, "Correct: %d\n", ev.Correct)
		fmt.Fprintf(out, "Accuracy: %.4f\n", ev.Accuracy)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateDir, "dir", "", "Polarity data directory (default sentiment.polarity_dir)")
	evaluateCmd.Flags().IntVar(&evaluateNGram, "ngram", 0, "Character n-gram length (default sentiment.ngram)")
	rootCmd.AddCommand(evaluateCmd)
}

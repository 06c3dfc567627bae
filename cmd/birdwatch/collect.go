package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"SentimentLedger/internal/stream"
)

var (
	collectCount int
	collectFile  string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect posts from the stream into the corpus file",
	Args:  cobra.NoArgs,
	RunE:  runCollect,
}

func init() {
	collectCmd.Flags().IntVar(&collectCount, "count", 0, "Number of posts (default stream.count)")
	collectCmd.Flags().StringVar(&collectFile, "from-file", "", "Replay posts from a text file instead of the stream")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return report(err)
	}

	var src stream.Source
	switch {
	case collectFile != "":
		src = stream.FileSource{Path: collectFile}
	case cfg.Stream.URL != "":
		src = stream.NewWebSocketSource(cfg.Stream.URL, cfg.Stream.Token, cfg.Stream.Languages)
	default:
		return report(fmt.Errorf("no stream configured: set stream.url or pass --from-file"))
	}
	n := cfg.Stream.Count
	if collectCount > 0 {
		n = collectCount
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.Stream.Timeout)
	defer cancelTimeout()

	written, err := stream.CollectFile(ctx, src, n, cfg.Sentiment.CorpusFile)
	fmt.Fprintf(cmd.OutOrStdout(), "Collected %d posts into %s\n", written, cfg.Sentiment.CorpusFile)
	if err != nil {
		return report(err)
	}
	return nil
}

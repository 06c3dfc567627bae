package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentimentLedger/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_InitCycleReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := r.URL.Query().Get("d")
		fmt.Fprintf(w, "Date,Open,High,Low,Close,Volume\n%s,100,112,99,110,1000\n", d)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(fmt.Sprintf(`
instrument:
  symbol: SPY
data_source:
  url_template: "%s/?s={symbol}&d={date}"
  rate_per_second: 100
collector:
  max_attempts: 3
  probe_offset_days: 0
  backoff_base: 1ms
  backoff_max: 2ms
ledger:
  experiment_file: %s
  control_file: %s
sentiment:
  polarity_dir: %s
  corpus_file: %s
database:
  sqlite_path: %s
`, srv.URL,
		filepath.Join(dir, "experiment.csv"), filepath.Join(dir, "control.csv"),
		filepath.Join(dir, "no-polarity"), filepath.Join(dir, "corpus.txt"),
		filepath.Join(dir, "runs.db"))), 0o644))

	for _, k := range []string{"SYMBOL", "PRICE_URL_TEMPLATE", "DATA_PROVIDER", "TELEGRAM_BOT_TOKEN",
		"TELEGRAM_CHAT_ID", "STREAM_URL", "SQLITE_PATH", "HTTPS_PROXY", "MAX_ATTEMPTS"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "--config", cfgFile, "report")
	require.Error(t, err)
	assert.Empty(t, out)

	out, err = execute(t, "--config", cfgFile, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "total 11000")

	_, err = execute(t, "--config", cfgFile, "init")
	assert.Error(t, err, "second init must not overwrite the ledgers")

	// No classifier is trained, so the experiment stays put and the control
	// multiplies by the close.
	out, err = execute(t, "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Verdict: negative")
	assert.Contains(t, out, "Experiment: 11000 -> 11000")
	assert.Contains(t, out, "Control:    11000 -> 1210000")

	out, err = execute(t, "--config", cfgFile, "report", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded with a position in SPY")
	assert.Contains(t, out, "Current total assets: 1210000")
	assert.Contains(t, out, "Return: 10900.00%")
	reportStats = false
}

func TestCLI_CollectFromFile(t *testing.T) {
	dir := t.TempDir()
	posts := filepath.Join(dir, "posts.txt")
	require.NoError(t, os.WriteFile(posts, []byte("one\ntwo\nthree\n"), 0o644))
	corpus := filepath.Join(dir, "corpus.txt")
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(fmt.Sprintf(`
ledger:
  experiment_file: %s
  control_file: %s
sentiment:
  corpus_file: %s
`, filepath.Join(dir, "e.csv"), filepath.Join(dir, "c.csv"), corpus)), 0o644))
	t.Setenv("STREAM_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "--config", cfgFile, "collect", "--from-file", posts, "--count", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Collected 2 posts")

	data, err := os.ReadFile(corpus)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))

	collectFile, collectCount = "", 0
}

func TestAlpacaTimeout(t *testing.T) {
	cfg := &config.Config{}
	cfg.DataSource.Timeout = 30 * time.Second
	cfg.Collector.AttemptTimeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, alpacaTimeout(cfg))

	cfg.Collector.AttemptTimeout = 0
	assert.Equal(t, 30*time.Second, alpacaTimeout(cfg))

	cfg.DataSource.Timeout = 0
	cfg.Collector.AttemptTimeout = time.Second
	assert.Equal(t, time.Second, alpacaTimeout(cfg))
}

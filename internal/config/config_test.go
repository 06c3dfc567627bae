package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentimentLedger/internal/model"
)

var envKeys = []string{
	"SYMBOL", "PRICE_URL_TEMPLATE", "DATA_PROVIDER", "APCA_API_KEY_ID",
	"APCA_API_SECRET_KEY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"STREAM_URL", "STREAM_TOKEN", "SQLITE_PATH", "HTTPS_PROXY", "LOG_LEVEL",
	"CRON_DAILY", "MAX_ATTEMPTS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `
instrument:
  symbol: "QQQ"
data_source:
  provider: "Alpaca"
  api_key: "key"
  api_secret: "secret"
  timeout: 5s
collector:
  max_attempts: 10
  probe_offset_days: 0
  calendar: simplified
  backoff_base: 1s
  backoff_max: 4s
ledger:
  experiment_file: "/tmp/x/exp.csv"
  control_file: "/tmp/x/ctl.csv"
engine:
  model: return
stream:
  url: "wss://example.test/stream"
  languages: ["en"]
telegram:
  bot_token: "tok"
  chat_id: "42"
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "QQQ", cfg.Instrument.Symbol)
	assert.Equal(t, ProviderAlpaca, cfg.DataSource.Provider)
	assert.Equal(t, 5*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, 10, cfg.Collector.MaxAttempts)
	assert.Equal(t, 0, cfg.ProbeOffset())
	assert.Equal(t, model.CalendarSimplified, cfg.Collector.Calendar)
	assert.Equal(t, time.Second, cfg.Backoff())
	assert.Equal(t, "return", cfg.Engine.Model)
	assert.Equal(t, []string{"en"}, cfg.Stream.Languages)
	assert.Equal(t, 1500, cfg.Stream.Count)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "SPY", cfg.Instrument.Symbol)
	assert.Equal(t, ProviderHTTP, cfg.DataSource.Provider)
	assert.Equal(t, 60, cfg.Collector.MaxAttempts)
	assert.Equal(t, 1, cfg.ProbeOffset())
	assert.Equal(t, 500*time.Millisecond, cfg.Backoff())
	assert.Equal(t, model.CalendarGregorian, cfg.Collector.Calendar)
	assert.Equal(t, "multiplier", cfg.Engine.Model)
	assert.Equal(t, int64(100), cfg.Ledger.SeedShares)
	assert.Equal(t, byte('9'), cfg.TestFoldByte())
	assert.Equal(t, "0 0 22 * * 1-5", cfg.Schedule.DailyCron)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_ZeroBackoffDisables(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, `
collector:
  backoff_base: 0s
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Duration(0), cfg.Backoff())
	assert.Equal(t, 8*time.Second, cfg.Collector.BackoffMax)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYMBOL", "IWM")
	t.Setenv("PRICE_URL_TEMPLATE", "http://prices.test/{symbol}/{date}")
	t.Setenv("STREAM_URL", "ws://stream.test")
	t.Setenv("SQLITE_PATH", "/tmp/runs.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CRON_DAILY", "0 30 21 * * *")
	t.Setenv("MAX_ATTEMPTS", "5")

	p := writeConfig(t, "instrument:\n  symbol: SPY\n")
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "IWM", cfg.Instrument.Symbol)
	assert.Equal(t, "http://prices.test/{symbol}/{date}", cfg.DataSource.URLTemplate)
	assert.Equal(t, "ws://stream.test", cfg.Stream.URL)
	assert.Equal(t, "/tmp/runs.db", cfg.Database.SQLitePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "0 30 21 * * *", cfg.Schedule.DailyCron)
	assert.Equal(t, 5, cfg.Collector.MaxAttempts)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "instrument: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "ftp" }},
		{"alpaca without keys", func(c *Config) { c.DataSource.Provider = ProviderAlpaca }},
		{"template without placeholders", func(c *Config) { c.DataSource.URLTemplate = "http://x/y.csv" }},
		{"negative attempts", func(c *Config) { c.Collector.MaxAttempts = -1 }},
		{"negative offset", func(c *Config) { n := -2; c.Collector.ProbeOffsetDays = &n }},
		{"negative backoff", func(c *Config) { d := -time.Second; c.Collector.BackoffBase = &d }},
		{"unknown calendar", func(c *Config) { c.Collector.Calendar = "julian" }},
		{"same ledger file", func(c *Config) { c.Ledger.ControlFile = c.Ledger.ExperimentFile }},
		{"unknown model", func(c *Config) { c.Engine.Model = "kelly" }},
		{"long fold", func(c *Config) { c.Sentiment.TestFold = "99" }},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "tok" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "configs/config.yaml", Path())
	t.Setenv("CONFIG_PATH", "/etc/birdwatch.yaml")
	assert.Equal(t, "/etc/birdwatch.yaml", Path())
}

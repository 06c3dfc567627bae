package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"SentimentLedger/internal/collector"
	"SentimentLedger/internal/model"
)

// Data providers.
const (
	ProviderHTTP   = "http"
	ProviderAlpaca = "alpaca"
)

// Config holds all application configuration.
type Config struct {
	Instrument struct {
		Symbol string `yaml:"symbol"`
	} `yaml:"instrument"`
	DataSource struct {
		Provider      string        `yaml:"provider"`
		URLTemplate   string        `yaml:"url_template"`
		APIKey        string        `yaml:"api_key"`
		APISecret     string        `yaml:"api_secret"`
		DataURL       string        `yaml:"data_url"`
		Feed          string        `yaml:"feed"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerSecond float64       `yaml:"rate_per_second"`
	} `yaml:"data_source"`
	Collector struct {
		MaxAttempts     int            `yaml:"max_attempts"`
		ProbeOffsetDays *int           `yaml:"probe_offset_days"`
		Calendar        model.Calendar `yaml:"calendar"`
		AttemptTimeout  time.Duration  `yaml:"attempt_timeout"`
		BackoffBase     *time.Duration `yaml:"backoff_base"`
		BackoffMax      time.Duration  `yaml:"backoff_max"`
	} `yaml:"collector"`
	Ledger struct {
		ExperimentFile string `yaml:"experiment_file"`
		ControlFile    string `yaml:"control_file"`
		SeedShares     int64  `yaml:"seed_shares"`
	} `yaml:"ledger"`
	Engine struct {
		Model string `yaml:"model"`
	} `yaml:"engine"`
	Sentiment struct {
		PolarityDir string `yaml:"polarity_dir"`
		NGram       int    `yaml:"ngram"`
		TestFold    string `yaml:"test_fold"`
		CorpusFile  string `yaml:"corpus_file"`
	} `yaml:"sentiment"`
	Stream struct {
		URL       string        `yaml:"url"`
		Token     string        `yaml:"token"`
		Count     int           `yaml:"count"`
		Languages []string      `yaml:"languages"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"stream"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Path returns the config file location from CONFIG_PATH or the default.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Instrument.Symbol = v
	}
	if v := os.Getenv("PRICE_URL_TEMPLATE"); v != "" {
		cfg.DataSource.URLTemplate = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.DataSource.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("STREAM_URL"); v != "" {
		cfg.Stream.URL = v
	}
	if v := os.Getenv("STREAM_TOKEN"); v != "" {
		cfg.Stream.Token = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Collector.MaxAttempts = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Instrument.Symbol == "" {
		cfg.Instrument.Symbol = "SPY"
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = ProviderHTTP
	}
	cfg.DataSource.Provider = strings.ToLower(cfg.DataSource.Provider)
	if cfg.DataSource.URLTemplate == "" {
		cfg.DataSource.URLTemplate = collector.DefaultURLTemplate
	}
	if cfg.DataSource.Feed == "" {
		cfg.DataSource.Feed = "iex"
	}
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 30 * time.Second
	}
	if cfg.DataSource.RatePerSecond == 0 {
		cfg.DataSource.RatePerSecond = 2
	}
	if cfg.Collector.MaxAttempts == 0 {
		cfg.Collector.MaxAttempts = 60
	}
	if cfg.Collector.ProbeOffsetDays == nil {
		one := 1
		cfg.Collector.ProbeOffsetDays = &one
	}
	if cfg.Collector.Calendar == "" {
		cfg.Collector.Calendar = model.CalendarGregorian
	}
	if cfg.Collector.AttemptTimeout == 0 {
		cfg.Collector.AttemptTimeout = 30 * time.Second
	}
	if cfg.Collector.BackoffBase == nil {
		base := 500 * time.Millisecond
		cfg.Collector.BackoffBase = &base
	}
	if cfg.Collector.BackoffMax == 0 {
		cfg.Collector.BackoffMax = 8 * time.Second
	}
	if cfg.Ledger.ExperimentFile == "" {
		cfg.Ledger.ExperimentFile = "data/experiment.csv"
	}
	if cfg.Ledger.ControlFile == "" {
		cfg.Ledger.ControlFile = "data/control.csv"
	}
	if cfg.Ledger.SeedShares == 0 {
		cfg.Ledger.SeedShares = 100
	}
	if cfg.Engine.Model == "" {
		cfg.Engine.Model = "multiplier"
	}
	if cfg.Sentiment.PolarityDir == "" {
		cfg.Sentiment.PolarityDir = "data/POLARITY_DIR"
	}
	if cfg.Sentiment.NGram == 0 {
		cfg.Sentiment.NGram = 8
	}
	if cfg.Sentiment.TestFold == "" {
		cfg.Sentiment.TestFold = "9"
	}
	if cfg.Sentiment.CorpusFile == "" {
		cfg.Sentiment.CorpusFile = "data/corpus.txt"
	}
	if cfg.Stream.Count == 0 {
		cfg.Stream.Count = 1500
	}
	if cfg.Stream.Timeout == 0 {
		cfg.Stream.Timeout = 10 * time.Minute
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 0 22 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/sentiment_ledger.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// ProbeOffset returns the configured first-probe offset in days.
func (c *Config) ProbeOffset() int {
	if c.Collector.ProbeOffsetDays == nil {
		return 1
	}
	return *c.Collector.ProbeOffsetDays
}

// Backoff returns the delay before the second attempt. Zero disables backoff.
func (c *Config) Backoff() time.Duration {
	if c.Collector.BackoffBase == nil {
		return 500 * time.Millisecond
	}
	return *c.Collector.BackoffBase
}

// TestFoldByte returns the held-out fold marker.
func (c *Config) TestFoldByte() byte {
	return c.Sentiment.TestFold[0]
}

// Validate checks that all required fields are set and consistent.
// Telegram is optional; when enabled both fields are required.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Instrument.Symbol) == "" {
		return fmt.Errorf("instrument.symbol is required")
	}
	switch c.DataSource.Provider {
	case ProviderHTTP:
		if !strings.Contains(c.DataSource.URLTemplate, "{") {
			return fmt.Errorf("data_source.url_template must contain placeholders")
		}
	case ProviderAlpaca:
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return fmt.Errorf("data_source.api_key and api_secret are required for alpaca")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.DataSource.RatePerSecond < 0 {
		return fmt.Errorf("data_source.rate_per_second must not be negative")
	}
	if c.Collector.MaxAttempts <= 0 {
		return fmt.Errorf("collector.max_attempts must be positive")
	}
	if c.ProbeOffset() < 0 {
		return fmt.Errorf("collector.probe_offset_days must not be negative")
	}
	if !c.Collector.Calendar.Valid() {
		return fmt.Errorf("collector.calendar %q is not supported", c.Collector.Calendar)
	}
	if c.Backoff() < 0 {
		return fmt.Errorf("collector.backoff_base must not be negative")
	}
	if c.Collector.BackoffMax < c.Backoff() {
		return fmt.Errorf("collector.backoff_max must be >= backoff_base")
	}
	if c.Ledger.ExperimentFile == c.Ledger.ControlFile {
		return fmt.Errorf("ledger.experiment_file and control_file must differ")
	}
	if c.Ledger.SeedShares <= 0 {
		return fmt.Errorf("ledger.seed_shares must be positive")
	}
	switch c.Engine.Model {
	case "multiplier", "return":
	default:
		return fmt.Errorf("engine.model %q is not supported", c.Engine.Model)
	}
	if c.Sentiment.NGram <= 0 {
		return fmt.Errorf("sentiment.ngram must be positive")
	}
	if len(c.Sentiment.TestFold) != 1 {
		return fmt.Errorf("sentiment.test_fold must be a single character")
	}
	if c.Stream.URL != "" && c.Stream.Count <= 0 {
		return fmt.Errorf("stream.count must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

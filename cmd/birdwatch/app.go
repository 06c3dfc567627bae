package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"

	"SentimentLedger/internal/collector"
	"SentimentLedger/internal/config"
	"SentimentLedger/internal/ledger"
	"SentimentLedger/internal/logging"
	"SentimentLedger/internal/notifier"
	"SentimentLedger/internal/recorder"
	"SentimentLedger/internal/scheduler"
	"SentimentLedger/internal/sentiment"
	"SentimentLedger/internal/strategy"
	"SentimentLedger/internal/stream"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg       *config.Config
	store     *ledger.Store
	collector *collector.Collector
	recorder  recorder.Recorder
	telegram  *notifier.TelegramNotifier
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logging.Setup(cfg.Logging.Level)
	return cfg, nil
}

func newApp(_ context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	a.store, err = ledger.NewStore(cfg.Ledger.ExperimentFile, cfg.Ledger.ControlFile)
	if err != nil {
		return nil, fmt.Errorf("open ledgers: %w", err)
	}

	retriever, err := newRetriever(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("source", retriever.Name()).Str("symbol", cfg.Instrument.Symbol).Msg("data source ready")

	col := collector.NewCollector(retriever, cfg.Instrument.Symbol)
	col.MaxAttempts = cfg.Collector.MaxAttempts
	col.ProbeOffsetDays = cfg.ProbeOffset()
	col.Calendar = cfg.Collector.Calendar
	col.AttemptTimeout = cfg.Collector.AttemptTimeout
	col.BackoffBase = cfg.Backoff()
	col.BackoffMax = cfg.Collector.BackoffMax
	a.collector = col

	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			a.recorder = recorder.NewNoopRecorder()
		} else {
			a.recorder = sr
		}
	} else {
		a.recorder = recorder.NewNoopRecorder()
	}

	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}
	return a, nil
}

func newRetriever(cfg *config.Config) (collector.Retriever, error) {
	switch cfg.DataSource.Provider {
	case config.ProviderAlpaca:
		return collector.NewAlpacaRetriever(cfg.DataSource.APIKey, cfg.DataSource.APISecret,
			cfg.DataSource.DataURL, cfg.DataSource.Feed, alpacaTimeout(cfg)), nil
	case config.ProviderHTTP:
		return collector.NewHTTPRetriever(cfg.DataSource.URLTemplate, cfg.Proxy,
			cfg.DataSource.Timeout, cfg.DataSource.RatePerSecond), nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.DataSource.Provider)
	}
}

// alpacaTimeout bounds one Alpaca request by the tighter of the data source
// timeout and the collector's per-attempt timeout.
func alpacaTimeout(cfg *config.Config) time.Duration {
	t := cfg.DataSource.Timeout
	if a := cfg.Collector.AttemptTimeout; a > 0 && (t <= 0 || a < t) {
		t = a
	}
	return t
}

// oracle trains the classifier from the polarity corpus. Without training
// data every verdict defaults to "do not invest".
func (a *app) oracle() sentiment.Oracle {
	c, ev, err := sentiment.TrainDir(a.cfg.Sentiment.PolarityDir, a.cfg.Sentiment.NGram, a.cfg.TestFoldByte())
	if err != nil {
		log.Warn().Err(err).Str("dir", a.cfg.Sentiment.PolarityDir).Msg("classifier unavailable")
		return nil
	}
	log.Info().Float64("accuracy", ev.Accuracy).Int("cases", ev.Cases).Msg("classifier ready")
	return c
}

func (a *app) source() stream.Source {
	if a.cfg.Stream.URL == "" {
		return nil
	}
	return stream.NewWebSocketSource(a.cfg.Stream.URL, a.cfg.Stream.Token, a.cfg.Stream.Languages)
}

func (a *app) notifier() notifier.Notifier {
	if a.telegram == nil {
		return notifier.NoopNotifier{}
	}
	return a.telegram
}

func (a *app) scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	engine := strategy.NewEngine(strategy.Model(a.cfg.Engine.Model))
	if !engine.Model.Valid() {
		return nil, fmt.Errorf("unknown engine model %q", a.cfg.Engine.Model)
	}
	s := scheduler.NewScheduler(ctx, a.collector, a.store, engine, a.oracle(), a.notifier(), a.recorder)
	s.Symbol = strings.ToUpper(a.cfg.Instrument.Symbol)
	s.CorpusFile = a.cfg.Sentiment.CorpusFile
	if src := a.source(); src != nil {
		s.Stream = src
		s.StreamCount = a.cfg.Stream.Count
		s.StreamTimeout = a.cfg.Stream.Timeout
	}
	return s, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}

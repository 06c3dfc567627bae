package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"SentimentLedger/internal/collector"
	"SentimentLedger/internal/model"
	"SentimentLedger/internal/notifier"
	"SentimentLedger/internal/recorder"
	"SentimentLedger/internal/report"
	"SentimentLedger/internal/sentiment"
	"SentimentLedger/internal/strategy"
	"SentimentLedger/internal/stream"
)

// ErrCycleRunning is returned when a cycle is requested while one is active.
var ErrCycleRunning = errors.New("a cycle is already running")

// BarSource finds the most recent price bar.
type BarSource interface {
	NextAvailableBar(ctx context.Context) (*collector.Result, error)
}

// Store is the ledger store as seen by the daily cycle.
type Store interface {
	strategy.Ledger
	report.Source
}

// Scheduler runs the daily cycle on a cron schedule and on demand.
type Scheduler struct {
	Cron     *cron.Cron
	Bars     BarSource
	Store    Store
	Engine   *strategy.Engine
	Oracle   sentiment.Oracle
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Symbol   string
	Ctx      context.Context
	Now      func() time.Time

	// Stream, when set, refreshes CorpusFile before each classification.
	Stream        stream.Source
	StreamCount   int
	StreamTimeout time.Duration
	CorpusFile    string

	running sync.Mutex
}

// Cycle is the outcome of one daily run.
type Cycle struct {
	RunID      string
	Bar        *collector.Result
	Posts      int
	Verdict    model.Verdict
	VerdictErr error
	Outcome    *strategy.Outcome
	Report     string
}

// NewScheduler creates a new Scheduler. Overlapping cron runs are skipped.
func NewScheduler(ctx context.Context, bars BarSource, store Store, engine *strategy.Engine,
	oracle sentiment.Oracle, n notifier.Notifier, rec recorder.Recorder) *Scheduler {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if engine == nil {
		engine = strategy.NewEngine(strategy.ModelMultiplier)
	}
	logger := cronLogger{}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Bars:     bars,
		Store:    store,
		Engine:   engine,
		Oracle:   oracle,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		Now:      time.Now,
	}
}

// RegisterDaily registers the daily cycle.
func (s *Scheduler) RegisterDaily(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunCycle(s.Ctx); err != nil {
		log.Error().Err(err).Msg("daily cycle failed")
	}
}

// RunCycle fetches the latest bar, classifies the corpus, appends to both
// ledgers and reports. Oracle failures default the verdict to false and do
// not fail the cycle; retrieval and ledger errors do.
func (s *Scheduler) RunCycle(ctx context.Context) (*Cycle, error) {
	if !s.running.TryLock() {
		return nil, ErrCycleRunning
	}
	defer s.running.Unlock()

	cycle := &Cycle{RunID: recorder.NewRunID()}
	evt := &recorder.RunEvent{
		ID:        cycle.RunID,
		StartedAt: s.now(),
		Symbol:    s.Symbol,
		Status:    recorder.StatusOK,
	}
	log.Info().Str("run", cycle.RunID).Str("symbol", s.Symbol).Msg("daily cycle started")

	res, err := s.Bars.NextAvailableBar(ctx)
	cycle.Bar = res
	if res != nil {
		evt.Attempts, evt.NotFound, evt.Failures = res.Attempts, res.NotFound, res.Failures
	}
	if err != nil {
		return nil, s.fail(evt, res, fmt.Errorf("fetch price: %w", err))
	}
	evt.BarDate = res.Date.String()
	evt.Open, evt.Close = res.Bar.Open, res.Bar.Close

	corpus := s.corpus(ctx)
	cycle.Posts = countPosts(corpus)
	evt.CorpusPosts = cycle.Posts

	cycle.Verdict, cycle.VerdictErr = sentiment.Decide(ctx, s.Oracle, corpus)
	if cycle.VerdictErr != nil {
		log.Warn().Err(cycle.VerdictErr).Msg("verdict defaulted to do not invest")
		evt.VerdictNote = cycle.VerdictErr.Error()
	}
	evt.Verdict = bool(cycle.Verdict)

	out, err := s.Engine.Apply(s.Store, res.Bar, cycle.Verdict, s.now())
	if err != nil {
		return nil, s.fail(evt, res, fmt.Errorf("apply verdict: %w", err))
	}
	cycle.Outcome = out
	evt.PriorExperiment, evt.Experiment = out.PriorExperiment.Total, out.Experiment.Total
	evt.PriorControl, evt.Control = out.PriorControl.Total, out.Control.Total

	if text, err := report.Render(s.Store, s.Symbol); err != nil {
		log.Error().Err(err).Msg("render report")
	} else {
		cycle.Report = text
	}

	evt.FinishedAt = s.now()
	s.record(evt, res)
	s.trySend(notifier.FormatCycle(notifier.CycleSummary{
		Symbol:          s.Symbol,
		BarDate:         evt.BarDate,
		Attempts:        res.Attempts,
		Open:            res.Bar.Open,
		Close:           res.Bar.Close,
		Verdict:         evt.Verdict,
		VerdictNote:     evt.VerdictNote,
		PriorExperiment: evt.PriorExperiment,
		Experiment:      evt.Experiment,
		PriorControl:    evt.PriorControl,
		Control:         evt.Control,
	}))

	log.Info().Str("run", cycle.RunID).Str("bar", evt.BarDate).Bool("verdict", evt.Verdict).
		Str("experiment", evt.Experiment.String()).Str("control", evt.Control.String()).
		Msg("daily cycle finished")
	return cycle, nil
}

// corpus refreshes the corpus file from the stream when one is configured and
// returns its contents. Failures leave an empty or partial corpus.
func (s *Scheduler) corpus(ctx context.Context) string {
	if s.CorpusFile == "" {
		return ""
	}
	if s.Stream != nil {
		sctx := ctx
		if s.StreamTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(ctx, s.StreamTimeout)
			defer cancel()
		}
		if n, err := stream.CollectFile(sctx, s.Stream, s.StreamCount, s.CorpusFile); err != nil {
			log.Warn().Err(err).Int("posts", n).Msg("stream collection incomplete")
		}
	}
	text, err := sentiment.ReadCorpus(s.CorpusFile)
	if err != nil {
		log.Warn().Err(err).Msg("read corpus")
		return ""
	}
	return text
}

func (s *Scheduler) fail(evt *recorder.RunEvent, res *collector.Result, err error) error {
	evt.Status = recorder.StatusFailed
	evt.Error = err.Error()
	evt.FinishedAt = s.now()
	s.record(evt, res)
	s.trySend(notifier.FormatFailure(s.Symbol, err))
	return err
}

func (s *Scheduler) record(evt *recorder.RunEvent, res *collector.Result) {
	if err := s.Recorder.RecordRun(evt); err != nil {
		log.Error().Err(err).Msg("record run")
	}
	if res == nil {
		return
	}
	probes := make([]recorder.ProbeEvent, 0, len(res.Probes))
	for _, p := range res.Probes {
		pe := recorder.ProbeEvent{Date: p.Date.String(), Outcome: string(p.Outcome)}
		if p.Err != nil {
			pe.Error = p.Err.Error()
		}
		probes = append(probes, pe)
	}
	if err := s.Recorder.RecordProbes(evt.ID, probes); err != nil {
		log.Error().Err(err).Msg("record probes")
	}
}

// historian is implemented by recorders that can list past runs.
type historian interface {
	RecentRuns(limit int) ([]recorder.RunEvent, error)
	ProbeCount(runID string) (int, error)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/report":
		text, err := report.Render(s.Store, s.Symbol)
		if err != nil {
			return notifier.FormatFailure(s.Symbol, err)
		}
		return notifier.FormatReport(text)
	case "/run":
		if _, err := s.RunCycle(s.Ctx); err != nil {
			if errors.Is(err, ErrCycleRunning) {
				return err.Error()
			}
			// The failure was already pushed.
			return ""
		}
		return ""
	case "/history":
		h, ok := s.Recorder.(historian)
		if !ok {
			return "run history is not recorded"
		}
		runs, err := h.RecentRuns(5)
		if err != nil {
			return notifier.FormatFailure(s.Symbol, err)
		}
		tried := make([]int, len(runs))
		for i, r := range runs {
			if tried[i], err = h.ProbeCount(r.ID); err != nil {
				return notifier.FormatFailure(s.Symbol, err)
			}
		}
		return formatHistory(runs, tried)
	default:
		return "Available commands:\n• /report\n• /run\n• /history"
	}
}

// formatHistory lists runs newest first; tried[i] is the number of dates
// queried by runs[i].
func formatHistory(runs []recorder.RunEvent, tried []int) string {
	if len(runs) == 0 {
		return "no runs recorded yet"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n")
	for i, r := range runs {
		if r.Status == recorder.StatusFailed {
			b.WriteString(fmt.Sprintf("%s ❌ %s (dates tried: %d)\n",
				r.StartedAt.Format("2006-01-02 15:04"), r.Error, tried[i]))
			continue
		}
		b.WriteString(fmt.Sprintf("%s bar %s verdict=%v exp=%s ctl=%s dates tried: %d\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.BarDate, r.Verdict,
			r.Experiment.String(), r.Control.String(), tried[i]))
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func countPosts(corpus string) int {
	n := 0
	for _, line := range strings.Split(corpus, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// cronLogger routes cron's own logging through the structured logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Str("fields", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Str("fields", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}

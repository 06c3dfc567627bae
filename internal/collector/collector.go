package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"SentimentLedger/internal/model"
)

// ProbeOutcome classifies a single retrieval attempt.
type ProbeOutcome string

const (
	ProbeFound    ProbeOutcome = "FOUND"
	ProbeNotFound ProbeOutcome = "NOT_FOUND"
	ProbeFailed   ProbeOutcome = "FAILED"
)

// Probe records one attempt of the rollback loop.
type Probe struct {
	Date    model.CalendarDate
	Outcome ProbeOutcome
	Err     error
}

// Result is the outcome of a successful NextAvailableBar call.
type Result struct {
	Bar      model.PriceBar
	Date     model.CalendarDate
	Attempts int
	NotFound int
	Failures int
	Probes   []Probe
}

// Collector walks backward from the probe date until the retriever yields a
// parsable bar or MaxAttempts is reached.
type Collector struct {
	Retriever       Retriever
	Symbol          string
	MaxAttempts     int
	ProbeOffsetDays int
	Calendar        model.Calendar
	AttemptTimeout  time.Duration
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	Now             func() time.Time
}

// NewCollector creates a Collector with the default policy: 60 attempts,
// probing one day ahead of today on the Gregorian calendar.
func NewCollector(retriever Retriever, symbol string) *Collector {
	return &Collector{
		Retriever:       retriever,
		Symbol:          symbol,
		MaxAttempts:     60,
		ProbeOffsetDays: 1,
		Calendar:        model.CalendarGregorian,
		AttemptTimeout:  30 * time.Second,
		BackoffBase:     500 * time.Millisecond,
		BackoffMax:      8 * time.Second,
		Now:             time.Now,
	}
}

// StartDate is the first date probed: today plus ProbeOffsetDays.
func (c *Collector) StartDate() model.CalendarDate {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return model.DateOf(now()).AddDays(c.ProbeOffsetDays)
}

// NextAvailableBar returns the most recent bar at or before the start date.
// Not-found and failed attempts both roll the probe back one day; failures are
// counted separately. It returns ErrDataUnavailable after exactly MaxAttempts
// retrievals; the partial Result is returned alongside so callers can record
// the probes.
func (c *Collector) NextAvailableBar(ctx context.Context) (*Result, error) {
	if c.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w: max attempts must be positive", ErrDataUnavailable)
	}

	res := &Result{}
	probe := c.StartDate()
	var lastErr error

	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}
		res.Attempts++

		bar, err := c.try(ctx, probe)
		switch {
		case err == nil:
			res.Probes = append(res.Probes, Probe{Date: probe, Outcome: ProbeFound})
			res.Bar = bar
			res.Date = probe
			log.Info().Str("source", c.Retriever.Name()).Str("date", probe.String()).
				Int("attempts", res.Attempts).Int("failures", res.Failures).
				Str("open", bar.Open.String()).Str("close", bar.Close.String()).Msg("price bar found")
			return res, nil
		case errors.Is(err, ErrNotFound):
			res.NotFound++
			res.Probes = append(res.Probes, Probe{Date: probe, Outcome: ProbeNotFound, Err: err})
			log.Debug().Str("date", probe.String()).Msg("no record, trying previous day")
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Failures++
			res.Probes = append(res.Probes, Probe{Date: probe, Outcome: ProbeFailed, Err: err})
			log.Warn().Err(err).Str("date", probe.String()).Int("failures", res.Failures).Msg("retrieval failed, trying previous day")
		}
		lastErr = err
		probe = c.Calendar.Previous(probe)
	}

	return res, fmt.Errorf("%w: %d attempts exhausted (%d not found, %d failed), last: %w",
		ErrDataUnavailable, res.Attempts, res.NotFound, res.Failures, lastErr)
}

func (c *Collector) try(ctx context.Context, date model.CalendarDate) (model.PriceBar, error) {
	attemptCtx := ctx
	if c.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.AttemptTimeout)
		defer cancel()
	}
	raw, err := c.Retriever.Retrieve(attemptCtx, c.Symbol, date)
	if err != nil {
		return model.PriceBar{}, err
	}
	return ParseRecord(raw)
}

// wait sleeps BackoffBase * 2^(attempt-1), capped at BackoffMax.
func (c *Collector) wait(ctx context.Context, attempt int) error {
	if c.BackoffBase <= 0 {
		return ctx.Err()
	}
	delay := c.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.BackoffMax > 0 && delay >= c.BackoffMax {
			delay = c.BackoffMax
			break
		}
	}
	if c.BackoffMax > 0 && delay > c.BackoffMax {
		delay = c.BackoffMax
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

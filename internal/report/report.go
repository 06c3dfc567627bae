// Package report renders the experiment summary from both ledgers.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"SentimentLedger/internal/calculator"
	"SentimentLedger/internal/ledger"
	"SentimentLedger/internal/model"
)

// Source is the read side of the ledger store.
type Source interface {
	First(st model.Strategy) (model.LedgerRecord, error)
	CurrentTotal(st model.Strategy) (decimal.Decimal, error)
}

// Render compares both strategies since inception. It fails with
// ledger.ErrUninitialized if either ledger has no seed record.
func Render(src Source, symbol string) (string, error) {
	seed, err := src.First(model.Experiment)
	if err != nil {
		return "", fmt.Errorf("read experiment seed: %w", err)
	}
	ctlSeed, err := src.First(model.Control)
	if err != nil {
		return "", fmt.Errorf("read control seed: %w", err)
	}
	expTotal, err := src.CurrentTotal(model.Experiment)
	if err != nil {
		return "", fmt.Errorf("read experiment total: %w", err)
	}
	ctlTotal, err := src.CurrentTotal(model.Control)
	if err != nil {
		return "", fmt.Errorf("read control total: %w", err)
	}

	if symbol == "" {
		symbol = "the instrument"
	}

	var b strings.Builder
	b.WriteString("Experiment Report\n")
	b.WriteString("=================\n\n")
	b.WriteString(fmt.Sprintf("Experiment started on: %s\n", seed.Timestamp.Format(ledger.TimestampLayout)))
	b.WriteString(fmt.Sprintf("Seeded with a position in %s\n", symbol))
	b.WriteString("Details were:" + seedDetails(seed) + "\n")
	if !sameSeed(seed, ctlSeed) {
		b.WriteString(fmt.Sprintf("Warning: the control ledger was seeded differently, on %s\n",
			ctlSeed.Timestamp.Format(ledger.TimestampLayout)))
		b.WriteString("Control details were:" + seedDetails(ctlSeed) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Sentiment strategy (experiment)\n")
	b.WriteString("  Assets change only on days when public sentiment was classified as positive.\n")
	b.WriteString(fmt.Sprintf("  Current total assets: %s\n\n", expTotal.String()))

	b.WriteString("Passive strategy (control)\n")
	b.WriteString("  The same position left in the market untouched over the same period.\n")
	b.WriteString(fmt.Sprintf("  Current total assets: %s\n", ctlTotal.String()))
	return b.String(), nil
}

// HistorySource exposes full ledger histories.
type HistorySource interface {
	Records(st model.Strategy) ([]model.LedgerRecord, error)
}

// RenderStats summarises both ledgers side by side.
func RenderStats(src HistorySource) (string, error) {
	var b strings.Builder
	b.WriteString("Ledger statistics\n")
	b.WriteString("=================\n")
	for _, st := range model.Strategies {
		recs, err := src.Records(st)
		if err != nil {
			return "", fmt.Errorf("read %s ledger: %w", st, err)
		}
		if len(recs) == 0 {
			return "", fmt.Errorf("read %s ledger: %w", st, ledger.ErrUninitialized)
		}
		s, err := calculator.Summarize(recs)
		if err != nil {
			return "", fmt.Errorf("summarize %s ledger: %w", st, err)
		}
		b.WriteString(fmt.Sprintf("\n%s\n", st))
		b.WriteString(fmt.Sprintf("  Records: %d (%d changed the total)\n", s.Records, s.ChangingDays))
		b.WriteString(fmt.Sprintf("  Start: %s  Current: %s\n", s.Start.String(), s.Current.String()))
		b.WriteString(fmt.Sprintf("  High: %s  Low: %s\n", s.High.String(), s.Low.String()))
		b.WriteString(fmt.Sprintf("  Return: %s%%  Max drawdown: %s%%\n",
			percent(s.Return), percent(s.MaxDrawdown)))
		b.WriteString(fmt.Sprintf("  Average of last %d: %s  Position in range: %s%%\n",
			s.Window, s.RecentAverage.StringFixed(2), percent(s.RangePosition)))
	}
	return b.String(), nil
}

func seedDetails(r model.LedgerRecord) string {
	return fmt.Sprintf("\tOpening price: %s\tClosing price: %s\tTotal assets invested: %s",
		r.Open.String(), r.Close.String(), r.Total.String())
}

func sameSeed(a, b model.LedgerRecord) bool {
	return a.Timestamp.Equal(b.Timestamp) && a.Total.Equal(b.Total) &&
		a.Open.Equal(b.Open) && a.Close.Equal(b.Close)
}

func percent(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"SentimentLedger/internal/model"
)

// Model selects how a positive day changes the running total.
type Model string

const (
	// ModelMultiplier multiplies the total by the closing price. This is the
	// historical ledger formula and is kept bit-for-bit compatible with
	// existing files, even though it treats a price as a growth factor.
	ModelMultiplier Model = "multiplier"
	// ModelReturn multiplies the total by the day's close/open ratio.
	ModelReturn Model = "return"
)

// Valid reports whether m is a known model.
func (m Model) Valid() bool {
	return m == ModelMultiplier || m == ModelReturn
}

// DefaultSeedShares is the position size the ledgers are seeded with.
const DefaultSeedShares = 100

// Engine computes next totals and writes them to a ledger.
type Engine struct {
	Model Model
}

// NewEngine creates an Engine; an empty model means ModelMultiplier.
func NewEngine(m Model) *Engine {
	if m == "" {
		m = ModelMultiplier
	}
	return &Engine{Model: m}
}

// NextTotal returns the total after one day. A negative verdict leaves the
// total unchanged.
func (e *Engine) NextTotal(prior decimal.Decimal, bar model.PriceBar, verdict model.Verdict) decimal.Decimal {
	if !verdict {
		return prior
	}
	if e.Model == ModelReturn {
		if bar.Open.IsZero() {
			return prior
		}
		return prior.Mul(bar.Close).Div(bar.Open)
	}
	return prior.Mul(bar.Close)
}

// Ledger is the part of the ledger store the engine writes through. Both
// operations touch every strategy or none.
type Ledger interface {
	InitializeAll(seed model.LedgerRecord) error
	UpdateAll(fn func(prior map[model.Strategy]model.LedgerRecord) (map[model.Strategy]model.LedgerRecord, error)) (map[model.Strategy]model.LedgerRecord, error)
}

// Outcome holds the prior and newly appended records of both strategies.
type Outcome struct {
	Verdict         model.Verdict
	Bar             model.PriceBar
	PriorExperiment model.LedgerRecord
	PriorControl    model.LedgerRecord
	Experiment      model.LedgerRecord
	Control         model.LedgerRecord
}

// Apply appends one record to each ledger. The experiment follows the
// verdict; the control always invests. Neither ledger changes unless both
// can be read.
func (e *Engine) Apply(l Ledger, bar model.PriceBar, verdict model.Verdict, ts time.Time) (*Outcome, error) {
	out := &Outcome{Verdict: verdict, Bar: bar}

	next := func(prior model.LedgerRecord, v model.Verdict) model.LedgerRecord {
		return model.LedgerRecord{
			Timestamp: ts,
			Total:     e.NextTotal(prior.Total, bar, v),
			Open:      bar.Open,
			Close:     bar.Close,
		}
	}

	recs, err := l.UpdateAll(func(prior map[model.Strategy]model.LedgerRecord) (map[model.Strategy]model.LedgerRecord, error) {
		out.PriorExperiment = prior[model.Experiment]
		out.PriorControl = prior[model.Control]
		return map[model.Strategy]model.LedgerRecord{
			model.Experiment: next(out.PriorExperiment, verdict),
			model.Control:    next(out.PriorControl, true),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update ledgers: %w", err)
	}
	out.Experiment = recs[model.Experiment]
	out.Control = recs[model.Control]
	return out, nil
}

// Seed initializes both ledgers with the value of shares at the bar's close.
func Seed(l Ledger, bar model.PriceBar, shares int64, ts time.Time) (model.LedgerRecord, error) {
	if shares <= 0 {
		shares = DefaultSeedShares
	}
	return SeedTotal(l, bar, bar.Close.Mul(decimal.NewFromInt(shares)), ts)
}

// SeedTotal initializes both ledgers with an explicit total.
func SeedTotal(l Ledger, bar model.PriceBar, total decimal.Decimal, ts time.Time) (model.LedgerRecord, error) {
	seed := model.LedgerRecord{Timestamp: ts, Total: total, Open: bar.Open, Close: bar.Close}
	if err := l.InitializeAll(seed); err != nil {
		return model.LedgerRecord{}, fmt.Errorf("seed ledgers: %w", err)
	}
	return seed, nil
}

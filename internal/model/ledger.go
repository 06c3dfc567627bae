package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy names one of the two tracked ledgers.
type Strategy string

const (
	// Experiment invests only on days with a positive sentiment verdict.
	Experiment Strategy = "experiment"
	// Control always invests, modelling passive holding.
	Control Strategy = "control"
)

// Strategies lists every ledger in report order.
var Strategies = []Strategy{Experiment, Control}

// LedgerRecord is one immutable line of a strategy ledger.
type LedgerRecord struct {
	Timestamp time.Time
	Total     decimal.Decimal
	Open      decimal.Decimal
	Close     decimal.Decimal
}

// Verdict is the binary sentiment decision: true means invest.
type Verdict bool

func (v Verdict) String() string {
	if v {
		return "positive"
	}
	return "negative"
}

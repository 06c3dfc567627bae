// Package calculator derives statistics from a ledger's history.
package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"SentimentLedger/internal/model"
)

// Stats summarises one ledger.
type Stats struct {
	Records      int
	Start        decimal.Decimal
	Current      decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Return       decimal.Decimal // Current/Start - 1
	MaxDrawdown  decimal.Decimal // largest peak-to-trough fall as a fraction
	ChangingDays int             // records whose total differs from the prior

	Window        int             // records averaged into RecentAverage
	RecentAverage decimal.Decimal // mean total over the last Window records
	RangePosition decimal.Decimal // Current within [Low, High], 0..1
}

// RecentWindow is how many trailing records Summarize averages.
const RecentWindow = 5

// MaxDrawdown returns the largest fractional fall from a running peak.
func MaxDrawdown(records []model.LedgerRecord) decimal.Decimal {
	worst := decimal.Zero
	if len(records) == 0 {
		return worst
	}
	peak := records[0].Total
	for _, r := range records[1:] {
		if r.Total.GreaterThan(peak) {
			peak = r.Total
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(r.Total).Div(peak)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}

// Summarize computes Stats over the full history. The first record is the seed.
func Summarize(records []model.LedgerRecord) (*Stats, error) {
	if len(records) == 0 {
		return nil, errors.New("no ledger records provided")
	}
	high, low, err := TotalRange(records)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		Records:     len(records),
		Start:       records[0].Total,
		Current:     records[len(records)-1].Total,
		High:        high,
		Low:         low,
		MaxDrawdown: MaxDrawdown(records),
	}
	if s.Start.IsPositive() {
		s.Return = s.Current.Div(s.Start).Sub(decimal.NewFromInt(1))
	}
	for i := 1; i < len(records); i++ {
		if !records[i].Total.Equal(records[i-1].Total) {
			s.ChangingDays++
		}
	}

	s.Window = min(RecentWindow, len(records))
	if s.RecentAverage, err = TotalSMA(records, s.Window); err != nil {
		return nil, err
	}
	if s.RangePosition, err = Position(s.Current, high, low); err != nil {
		return nil, err
	}
	return s, nil
}

package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"SentimentLedger/internal/model"
)

// TotalRange scans every record and returns the highest and lowest total.
func TotalRange(records []model.LedgerRecord) (high, low decimal.Decimal, err error) {
	if len(records) == 0 {
		return decimal.Zero, decimal.Zero, errors.New("no ledger records provided")
	}
	high, low = records[0].Total, records[0].Total
	for _, r := range records[1:] {
		if r.Total.GreaterThan(high) {
			high = r.Total
		}
		if r.Total.LessThan(low) {
			low = r.Total
		}
	}
	return high, low, nil
}

// Position returns where current sits within [low, high] (0.0~1.0).
func Position(current, high, low decimal.Decimal) (decimal.Decimal, error) {
	if high.Equal(low) {
		return decimal.NewFromFloat(0.5), nil
	}
	if high.LessThan(low) {
		return decimal.Zero, errors.New("high must be >= low")
	}
	pos := current.Sub(low).Div(high.Sub(low))
	if pos.IsNegative() {
		pos = decimal.Zero
	}
	if pos.GreaterThan(decimal.NewFromInt(1)) {
		pos = decimal.NewFromInt(1)
	}
	return pos, nil
}

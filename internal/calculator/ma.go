package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"SentimentLedger/internal/model"
)

// SMA computes the simple moving average of the last period values.
func SMA(values []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.New("period must be positive")
	}
	if len(values) < period {
		return decimal.Zero, errors.New("not enough data for SMA calculation")
	}
	sum := decimal.Zero
	for i := len(values) - period; i < len(values); i++ {
		sum = sum.Add(values[i])
	}
	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// TotalSMA returns the moving average of the ledger total over period records.
func TotalSMA(records []model.LedgerRecord, period int) (decimal.Decimal, error) {
	return SMA(extractTotals(records), period)
}

func extractTotals(records []model.LedgerRecord) []decimal.Decimal {
	totals := make([]decimal.Decimal, len(records))
	for i, r := range records {
		totals[i] = r.Total
	}
	return totals
}

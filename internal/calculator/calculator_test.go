package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentimentLedger/internal/model"
)

func records(totals ...string) []model.LedgerRecord {
	out := make([]model.LedgerRecord, len(totals))
	for i, t := range totals {
		out[i] = model.LedgerRecord{Total: decimal.RequireFromString(t)}
	}
	return out
}

func TestSMA(t *testing.T) {
	v, err := TotalSMA(records("1", "2", "3", "4"), 2)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("3.5")), v.String())

	_, err = TotalSMA(records("1"), 2)
	assert.Error(t, err)
	_, err = SMA(nil, 0)
	assert.Error(t, err)
}

func TestTotalRangeAndPosition(t *testing.T) {
	high, low, err := TotalRange(records("100", "150", "80", "120"))
	require.NoError(t, err)
	assert.Equal(t, "150", high.String())
	assert.Equal(t, "80", low.String())

	pos, err := Position(decimal.NewFromInt(115), high, low)
	require.NoError(t, err)
	assert.Equal(t, "0.5", pos.String())

	pos, err = Position(decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "0.5", pos.String())

	_, err = Position(decimal.Zero, decimal.NewFromInt(1), decimal.NewFromInt(2))
	assert.Error(t, err)

	_, _, err = TotalRange(nil)
	assert.Error(t, err)
}

func TestMaxDrawdown(t *testing.T) {
	dd := MaxDrawdown(records("100", "200", "150", "250", "50", "300"))
	assert.Equal(t, "0.8", dd.String())
	assert.True(t, MaxDrawdown(records("1", "2", "3")).IsZero())
	assert.True(t, MaxDrawdown(nil).IsZero())
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(records("10000", "10000", "20000", "20000", "15000"))
	require.NoError(t, err)
	assert.Equal(t, 5, s.Records)
	assert.Equal(t, "0.5", s.Return.String())
	assert.Equal(t, "0.25", s.MaxDrawdown.String())
	assert.Equal(t, 2, s.ChangingDays)
	assert.Equal(t, "20000", s.High.String())
	assert.Equal(t, 5, s.Window)
	assert.Equal(t, "17000", s.RecentAverage.String())
	assert.Equal(t, "0.5", s.RangePosition.String())

	short, err := Summarize(records("100", "300"))
	require.NoError(t, err)
	assert.Equal(t, 2, short.Window)
	assert.Equal(t, "200", short.RecentAverage.String())
	assert.Equal(t, "1", short.RangePosition.String())

	_, err = Summarize(nil)
	assert.Error(t, err)
}

package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentimentLedger/internal/ledger"
	"SentimentLedger/internal/model"
)

func TestRender(t *testing.T) {
	dir := t.TempDir()
	s, err := ledger.NewStore(filepath.Join(dir, "e.txt"), filepath.Join(dir, "c.txt"))
	require.NoError(t, err)
	s.SetLocation(time.UTC)

	seed := model.LedgerRecord{
		Timestamp: time.Date(2016, 6, 1, 21, 0, 0, 0, time.UTC),
		Total:     decimal.RequireFromString("10000.00"),
		Open:      decimal.NewFromInt(100),
		Close:     decimal.NewFromInt(100),
	}
	require.NoError(t, s.Initialize(model.Experiment, seed))
	require.NoError(t, s.Initialize(model.Control, seed))

	next := seed
	next.Timestamp = seed.Timestamp.AddDate(0, 0, 1)
	next.Total = decimal.NewFromInt(1100000)
	require.NoError(t, s.Append(model.Control, next))

	out, err := Render(s, "SPY")
	require.NoError(t, err)
	assert.Contains(t, out, "Experiment started on: 2016/06/01 21:00:00")
	assert.Contains(t, out, "Seeded with a position in SPY")
	assert.Contains(t, out, "Opening price: 100\tClosing price: 100\tTotal assets invested: 10000")
	assert.Contains(t, out, "Current total assets: 10000\n")
	assert.Contains(t, out, "Current total assets: 1100000\n")
	assert.NotContains(t, out, "seeded differently")

	again, err := Render(s, "SPY")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRender_Uninitialized(t *testing.T) {
	dir := t.TempDir()
	s, err := ledger.NewStore(filepath.Join(dir, "e.txt"), filepath.Join(dir, "c.txt"))
	require.NoError(t, err)

	_, err = Render(s, "SPY")
	assert.ErrorIs(t, err, ledger.ErrUninitialized)

	seed := model.LedgerRecord{Timestamp: time.Now(), Total: decimal.NewFromInt(1)}
	require.NoError(t, s.Initialize(model.Experiment, seed))
	_, err = Render(s, "SPY")
	assert.ErrorIs(t, err, ledger.ErrUninitialized)
}

func TestRenderStats(t *testing.T) {
	dir := t.TempDir()
	s, err := ledger.NewStore(filepath.Join(dir, "e.txt"), filepath.Join(dir, "c.txt"))
	require.NoError(t, err)

	ts := time.Date(2016, 6, 1, 21, 0, 0, 0, time.UTC)
	rec := func(total string) model.LedgerRecord {
		ts = ts.AddDate(0, 0, 1)
		return model.LedgerRecord{Timestamp: ts, Total: decimal.RequireFromString(total),
			Open: decimal.NewFromInt(1), Close: decimal.NewFromInt(1)}
	}
	_, err = RenderStats(s)
	assert.ErrorIs(t, err, ledger.ErrUninitialized)

	require.NoError(t, s.Initialize(model.Experiment, rec("100")))
	require.NoError(t, s.Initialize(model.Control, rec("100")))
	require.NoError(t, s.Append(model.Experiment, rec("100")))
	require.NoError(t, s.Append(model.Control, rec("200")))
	require.NoError(t, s.Append(model.Control, rec("150")))

	out, err := RenderStats(s)
	require.NoError(t, err)
	assert.Contains(t, out, "experiment\n  Records: 2 (0 changed the total)")
	assert.Contains(t, out, "control\n  Records: 3 (2 changed the total)")
	assert.Contains(t, out, "Return: 50.00%  Max drawdown: 25.00%")
	assert.Contains(t, out, "Average of last 3: 150.00  Position in range: 50.00%")
	assert.Contains(t, out, "Average of last 2: 100.00  Position in range: 50.00%")
}

func TestRender_SeedsDiffer(t *testing.T) {
	dir := t.TempDir()
	s, err := ledger.NewStore(filepath.Join(dir, "e.txt"), filepath.Join(dir, "c.txt"))
	require.NoError(t, err)
	s.SetLocation(time.UTC)

	seed := model.LedgerRecord{
		Timestamp: time.Date(2016, 6, 1, 21, 0, 0, 0, time.UTC),
		Total:     decimal.NewFromInt(10000),
		Open:      decimal.NewFromInt(100),
		Close:     decimal.NewFromInt(100),
	}
	ctl := seed
	ctl.Timestamp = seed.Timestamp.AddDate(0, 0, 2)
	ctl.Total = decimal.NewFromInt(20845)
	ctl.Close = decimal.RequireFromString("208.45")
	require.NoError(t, s.Initialize(model.Experiment, seed))
	require.NoError(t, s.Initialize(model.Control, ctl))

	out, err := Render(s, "SPY")
	require.NoError(t, err)
	assert.Contains(t, out, "Details were:\tOpening price: 100\tClosing price: 100\tTotal assets invested: 10000\n")
	assert.Contains(t, out, "Warning: the control ledger was seeded differently, on 2016/06/03 21:00:00")
	assert.Contains(t, out, "Control details were:\tOpening price: 100\tClosing price: 208.45\tTotal assets invested: 20845\n")
}

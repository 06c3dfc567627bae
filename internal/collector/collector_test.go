package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentimentLedger/internal/model"
)

func newTestCollector(r Retriever, now time.Time) *Collector {
	c := NewCollector(r, "SPY")
	c.BackoffBase = 0
	c.AttemptTimeout = time.Second
	c.Now = func() time.Time { return now }
	return c
}

func TestNextAvailableBar_RollsBackUntilFound(t *testing.T) {
	now := time.Date(2016, 6, 12, 10, 0, 0, 0, time.UTC) // Sunday
	start := model.CalendarDate{Day: 13, Month: 6, Year: 2016}
	found := model.CalendarDate{Day: 10, Month: 6, Year: 2016}

	m := &MockRetriever{Records: map[model.CalendarDate][]byte{
		found: MockRecord(found, "105", "110"),
	}}
	c := newTestCollector(m, now)

	res, err := c.NextAvailableBar(context.Background())
	require.NoError(t, err)

	assert.Equal(t, start, c.StartDate())
	assert.Equal(t, found, res.Date)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 3, res.NotFound)
	assert.Equal(t, 0, res.Failures)
	assert.True(t, res.Bar.Close.Equal(decimal.NewFromInt(110)))
	assert.True(t, res.Bar.Open.Equal(decimal.NewFromInt(105)))
	require.Len(t, m.Calls, 4)
	assert.Equal(t, start, m.Calls[0])
	assert.Equal(t, found, m.Calls[3])
}

func TestNextAvailableBar_TransportErrorsAreRetried(t *testing.T) {
	now := time.Date(2016, 6, 12, 10, 0, 0, 0, time.UTC)
	d13 := model.CalendarDate{Day: 13, Month: 6, Year: 2016}
	d12 := model.CalendarDate{Day: 12, Month: 6, Year: 2016}
	d11 := model.CalendarDate{Day: 11, Month: 6, Year: 2016}
	d10 := model.CalendarDate{Day: 10, Month: 6, Year: 2016}

	m := &MockRetriever{
		Records: map[model.CalendarDate][]byte{
			d11: []byte("garbage"),
			d10: MockRecord(d10, "1", "2"),
		},
		Failing: map[model.CalendarDate]error{d13: errors.New("connection reset")},
	}
	c := newTestCollector(m, now)

	res, err := c.NextAvailableBar(context.Background())
	require.NoError(t, err)
	assert.Equal(t, d10, res.Date)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 1, res.NotFound)
	assert.Equal(t, 2, res.Failures)
	require.Len(t, res.Probes, 4)
	assert.Equal(t, ProbeFailed, res.Probes[0].Outcome)
	assert.Equal(t, d12, res.Probes[1].Date)
	assert.Equal(t, ProbeNotFound, res.Probes[1].Outcome)
	assert.ErrorIs(t, res.Probes[2].Err, ErrMalformedRecord)
	assert.Equal(t, ProbeFound, res.Probes[3].Outcome)
}

func TestNextAvailableBar_ExhaustsExactlyMaxAttempts(t *testing.T) {
	m := &MockRetriever{}
	c := newTestCollector(m, time.Date(2016, 6, 12, 10, 0, 0, 0, time.UTC))
	c.MaxAttempts = 7

	res, err := c.NextAvailableBar(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, m.Calls, 7)
	require.NotNil(t, res)
	assert.Equal(t, 7, res.Attempts)
	assert.Equal(t, 7, res.NotFound)
	assert.Len(t, res.Probes, 7)
}

func TestNextAvailableBar_SimplifiedCalendar(t *testing.T) {
	// today 29 Feb 2016, probe starts 1 Mar, then 31 Feb under the literal rule.
	now := time.Date(2016, 2, 29, 10, 0, 0, 0, time.UTC)
	m := &MockRetriever{}
	c := newTestCollector(m, now)
	c.Calendar = model.CalendarSimplified
	c.MaxAttempts = 3

	_, err := c.NextAvailableBar(context.Background())
	require.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, []model.CalendarDate{
		{Day: 1, Month: 3, Year: 2016},
		{Day: 31, Month: 2, Year: 2016},
		{Day: 30, Month: 2, Year: 2016},
	}, m.Calls)
}

func TestNextAvailableBar_ProbeOffset(t *testing.T) {
	now := time.Date(2016, 6, 10, 10, 0, 0, 0, time.UTC)
	today := model.DateOf(now)
	m := &MockRetriever{Records: map[model.CalendarDate][]byte{today: MockRecord(today, "1", "2")}}
	c := newTestCollector(m, now)
	c.ProbeOffsetDays = 0

	res, err := c.NextAvailableBar(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, today, res.Date)
}

func TestNextAvailableBar_ContextCancelled(t *testing.T) {
	m := &MockRetriever{}
	c := newTestCollector(m, time.Date(2016, 6, 12, 10, 0, 0, 0, time.UTC))
	c.BackoffBase = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.NextAvailableBar(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, m.Calls, 1)
}

func TestNextAvailableBar_InvalidBound(t *testing.T) {
	c := newTestCollector(&MockRetriever{}, time.Now())
	c.MaxAttempts = 0
	_, err := c.NextAvailableBar(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

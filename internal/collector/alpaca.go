package collector

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"SentimentLedger/internal/model"
)

// barsClient is the subset of *marketdata.Client used here.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaRetriever fetches daily bars from the Alpaca market data API and
// renders them into the same tabular record the HTTP source returns.
type AlpacaRetriever struct {
	client barsClient
	feed   string
}

// NewAlpacaRetriever creates a retriever for the given credentials. An empty
// dataURL uses the SDK default. GetBars takes no context, so timeout bounds
// each request at the HTTP client instead; zero keeps the SDK's 10s.
func NewAlpacaRetriever(apiKey, apiSecret, dataURL, feed string, timeout time.Duration) *AlpacaRetriever {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if timeout > 0 {
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaRetriever{client: marketdata.NewClient(opts), feed: feed}
}

func (a *AlpacaRetriever) Name() string { return "alpaca" }

func (a *AlpacaRetriever) Retrieve(ctx context.Context, symbol string, date model.CalendarDate) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Days the simplified calendar invents (31 Feb) have no session.
	if !date.Valid() {
		return nil, fmt.Errorf("alpaca %s: not a real day: %w", date, ErrNotFound)
	}
	start := date.Time()
	bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       start.AddDate(0, 0, 1),
		Feed:      marketdata.Feed(a.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars %s: %w", date, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, b := range bars {
		if model.DateOf(b.Timestamp.UTC()) == date {
			return renderBar(date, b)
		}
	}
	return nil, fmt.Errorf("alpaca %s: %w", date, ErrNotFound)
}

func renderBar(date model.CalendarDate, b marketdata.Bar) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	_ = w.Write([]string{"Date", "Open", "High", "Low", "Close", "Volume"})
	_ = w.Write([]string{date.String(), f(b.Open), f(b.High), f(b.Low), f(b.Close), fmt.Sprint(b.Volume)})
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render alpaca bar: %w", err)
	}
	return buf.Bytes(), nil
}

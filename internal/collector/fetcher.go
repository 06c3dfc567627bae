package collector

import (
	"context"
	"errors"

	"SentimentLedger/internal/model"
)

var (
	// ErrNotFound means the source holds no record for the requested date,
	// e.g. weekends and market holidays.
	ErrNotFound = errors.New("no price record for date")
	// ErrDataUnavailable means the rollback attempt bound was exhausted.
	ErrDataUnavailable = errors.New("price data unavailable")
	// ErrMalformedRecord means a retrieved record lacks usable Open/Close fields.
	ErrMalformedRecord = errors.New("malformed price record")
)

// Retriever fetches the raw tabular record for one calendar date. It knows
// nothing about retry policy; absence of data must be reported as ErrNotFound.
type Retriever interface {
	Retrieve(ctx context.Context, symbol string, date model.CalendarDate) ([]byte, error)
	Name() string
}

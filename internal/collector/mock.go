package collector

import (
	"context"
	"fmt"
	"sync"

	"SentimentLedger/internal/model"
)

// MockRetriever serves fixed records keyed by date for development and
// testing. Dates listed in Failing return a transport-style error; every
// other unknown date returns ErrNotFound.
type MockRetriever struct {
	mu      sync.Mutex
	Records map[model.CalendarDate][]byte
	Failing map[model.CalendarDate]error
	Calls   []model.CalendarDate
}

func (m *MockRetriever) Name() string { return "mock" }

func (m *MockRetriever) Retrieve(ctx context.Context, _ string, date model.CalendarDate) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, date)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Failing[date]; ok {
		return nil, err
	}
	if raw, ok := m.Records[date]; ok {
		return raw, nil
	}
	return nil, fmt.Errorf("mock %s: %w", date, ErrNotFound)
}

// MockRecord renders a one-row table in the remote source's layout.
func MockRecord(date model.CalendarDate, open, close string) []byte {
	return []byte(fmt.Sprintf("Date,Open,High,Low,Close,Volume,Adj Close\n%s,%s,%s,%s,%s,1000000,%s\n",
		date, open, close, open, close, close))
}

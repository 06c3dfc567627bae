package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SentimentLedger/internal/model"
)

// TimestampLayout is the timestamp format of every ledger line.
const TimestampLayout = "2006/01/02 15:04:05"

const (
	openLabel  = "Opening price: "
	closeLabel = "Closing price: "
)

// FormatLine renders rec as one newline-terminated ledger line:
//
//	2016/06/10 21:00:00,1100000,Opening price: 105,Closing price: 110,
func FormatLine(rec model.LedgerRecord) string {
	return fmt.Sprintf("%s,%s,%s%s,%s%s,\n",
		rec.Timestamp.Format(TimestampLayout),
		rec.Total.String(),
		openLabel, rec.Open.String(),
		closeLabel, rec.Close.String())
}

// ParseLine parses one ledger line. Only the timestamp and total are
// required; the labelled prices may be absent in hand-edited files.
func ParseLine(line string, loc *time.Location) (model.LedgerRecord, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) < 2 {
		return model.LedgerRecord{}, fmt.Errorf("%w: %q has %d fields", ErrCorrupt, line, len(fields))
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(fields[0]), loc)
	if err != nil {
		return model.LedgerRecord{}, fmt.Errorf("%w: timestamp %q: %v", ErrCorrupt, fields[0], err)
	}
	total, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
	if err != nil {
		return model.LedgerRecord{}, fmt.Errorf("%w: total %q: %v", ErrCorrupt, fields[1], err)
	}
	rec := model.LedgerRecord{Timestamp: ts, Total: total}
	for _, f := range fields[2:] {
		f = strings.TrimSpace(f)
		switch {
		case strings.HasPrefix(f, openLabel):
			rec.Open, err = decimal.NewFromString(strings.TrimPrefix(f, openLabel))
		case strings.HasPrefix(f, closeLabel):
			rec.Close, err = decimal.NewFromString(strings.TrimPrefix(f, closeLabel))
		}
		if err != nil {
			return model.LedgerRecord{}, fmt.Errorf("%w: price field %q: %v", ErrCorrupt, f, err)
		}
	}
	return rec, nil
}

package collector

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"SentimentLedger/internal/model"
)

// ParseRecord reads a comma-delimited table with a header row and returns the
// Open and Close of its first data row. Columns are located by header name.
func ParseRecord(raw []byte) (model.PriceBar, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return model.PriceBar{}, fmt.Errorf("%w: read header: %v", ErrMalformedRecord, err)
	}
	openIdx, closeIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "open":
			openIdx = i
		case "close":
			closeIdx = i
		}
	}
	if openIdx < 0 || closeIdx < 0 {
		return model.PriceBar{}, fmt.Errorf("%w: header %q lacks Open/Close", ErrMalformedRecord, header)
	}

	var row []string
	for {
		row, err = r.Read()
		if errors.Is(err, io.EOF) {
			return model.PriceBar{}, fmt.Errorf("%w: no data row", ErrMalformedRecord)
		}
		if err != nil {
			return model.PriceBar{}, fmt.Errorf("%w: read row: %v", ErrMalformedRecord, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		break
	}

	open, err := priceField(row, openIdx, "Open")
	if err != nil {
		return model.PriceBar{}, err
	}
	cls, err := priceField(row, closeIdx, "Close")
	if err != nil {
		return model.PriceBar{}, err
	}
	return model.PriceBar{Open: open, Close: cls}, nil
}

func priceField(row []string, idx int, name string) (decimal.Decimal, error) {
	if idx >= len(row) {
		return decimal.Zero, fmt.Errorf("%w: %s column missing from row", ErrMalformedRecord, name)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(row[idx]))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q is not numeric", ErrMalformedRecord, name, row[idx])
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s=%s is negative", ErrMalformedRecord, name, v)
	}
	return v, nil
}

package model

import "github.com/shopspring/decimal"

// PriceBar is one day's opening and closing price for the instrument.
type PriceBar struct {
	Open  decimal.Decimal
	Close decimal.Decimal
}

// Package domain provides the core portfolio valuation models.
package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CashInstrumentID identifies the reserved cash instrument. Cash is never priced
// externally; its value is its quantity.
const CashInstrumentID int64 = 1

// ValuePrecision is the number of decimal places kept for prices and values
const ValuePrecision int32 = 2

// Instrument is a trackable holding: a stock or the cash placeholder
type Instrument struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// IsCash reports whether the instrument is the reserved cash placeholder
func (i Instrument) IsCash() bool {
	return i.ID == CashInstrumentID
}

// PositionDelta is one recorded change in quantity held (buy, sell, contribution)
type PositionDelta struct {
	ID           int64           `json:"id"`
	InstrumentID int64           `json:"instrument_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// Delta validation errors
var (
	ErrZeroDelta     = errors.New("quantity change must not be zero")
	ErrCashPrecision = errors.New("cash changes are limited to whole cents")
)

// Validate checks a delta before it is recorded. Cash is valued at its quantity,
// so a cash delta must already be at value precision.
func (d PositionDelta) Validate() error {
	if d.Quantity.IsZero() {
		return ErrZeroDelta
	}
	if d.InstrumentID == CashInstrumentID && !d.Quantity.Equal(d.Quantity.Round(ValuePrecision)) {
		return fmt.Errorf("%w: %s", ErrCashPrecision, d.Quantity)
	}
	return nil
}

// Holding is the current net quantity of an instrument (sum of all its deltas)
type Holding struct {
	Instrument Instrument      `json:"instrument"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Quote is a single day's open/high/low/close for one instrument
type Quote struct {
	Date         TradingDate     `json:"date"`
	InstrumentID int64           `json:"instrument_id"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
}

// ValuationLine is one holding's computed value on a date
type ValuationLine struct {
	Date             TradingDate     `json:"date"`
	InstrumentName   string          `json:"stock_name"`
	InstrumentSymbol string          `json:"stock_symbol"`
	Quantity         decimal.Decimal `json:"quantity"`
	OpenValue        decimal.Decimal `json:"open_value"`
	HighValue        decimal.Decimal `json:"high_value"`
	LowValue         decimal.Decimal `json:"low_value"`
	CloseValue       decimal.Decimal `json:"close_value"`
}

// ReportSummary is the portfolio-wide total for a date
type ReportSummary struct {
	Date       TradingDate     `json:"date"`
	OpenValue  decimal.Decimal `json:"open_value"`
	HighValue  decimal.Decimal `json:"high_value"`
	LowValue   decimal.Decimal `json:"low_value"`
	CloseValue decimal.Decimal `json:"close_value"`
}

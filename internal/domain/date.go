package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical calendar date form, zero-padded
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned for date strings that are not zero-padded YYYY-MM-DD
var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

// TradingDate is a calendar date without time of day or zone
type TradingDate struct {
	t time.Time
}

// ParseTradingDate validates and parses a YYYY-MM-DD string.
// "2021-5-3" and trailing garbage are rejected.
func ParseTradingDate(s string) (TradingDate, error) {
	if len(s) != len(DateLayout) {
		return TradingDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TradingDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return TradingDate{t: t}, nil
}

// MustParseTradingDate is ParseTradingDate for constants and tests
func MustParseTradingDate(s string) TradingDate {
	d, err := ParseTradingDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) TradingDate {
	y, m, d := t.Date()
	return TradingDate{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String renders the date as YYYY-MM-DD
func (d TradingDate) String() string {
	return d.t.Format(DateLayout)
}

// IsZero reports whether the date is unset
func (d TradingDate) IsZero() bool {
	return d.t.IsZero()
}

// Start returns midnight UTC at the beginning of the date
func (d TradingDate) Start() time.Time {
	return d.t
}

// Next returns the following calendar date
func (d TradingDate) Next() TradingDate {
	return TradingDate{t: d.t.AddDate(0, 0, 1)}
}

// Equal reports whether both values name the same date
func (d TradingDate) Equal(other TradingDate) bool {
	return d.t.Equal(other.t)
}

// Value stores the date as YYYY-MM-DD text
func (d TradingDate) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads a YYYY-MM-DD column
func (d *TradingDate) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTradingDate(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	case time.Time:
		*d = DateOf(v)
	default:
		return fmt.Errorf("cannot scan %T into TradingDate", src)
	}
	return nil
}

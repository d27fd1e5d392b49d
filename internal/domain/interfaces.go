package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNoData signals that a price source has no bar for the requested window:
// a non-trading day, a future date, or an unknown/delisted symbol. It is an
// expected outcome, distinct from transport or parse failures.
var ErrNoData = errors.New("no price data")

// Bar is one daily open/high/low/close row as returned by a price source.
// Date carries the source's own index, in the exchange's location.
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// PriceSource fetches daily bars for a symbol over [start, end).
// An empty window is reported as ErrNoData.
type PriceSource interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

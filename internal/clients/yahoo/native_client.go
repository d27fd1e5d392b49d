package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// historyFunc loads daily history for a symbol over a Yahoo period string
type historyFunc func(symbol string, params models.HistoryParams) ([]models.Bar, error)

// NativeClient fetches daily bars through the go-yfinance library
type NativeClient struct {
	history historyFunc
	now     func() time.Time
	log     zerolog.Logger
}

// NewNativeClient creates a new native Yahoo Finance client
func NewNativeClient(log zerolog.Logger) *NativeClient {
	return &NativeClient{
		history: tickerHistory,
		now:     time.Now,
		log:     log.With().Str("client", "yahoo-native").Logger(),
	}
}

func tickerHistory(symbol string, params models.HistoryParams) ([]models.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	return t.History(params)
}

// Fetch returns the daily bars for symbol in [start, end).
// The library only takes lookback periods, so the smallest period reaching
// back to start is requested and the result is filtered by calendar date.
func (c *NativeClient) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	params := models.HistoryParams{
		Period:     periodFor(c.now().Sub(start)),
		Interval:   "1d",
		AutoAdjust: false, // raw prices, matching the chart endpoint
	}

	type result struct {
		bars []models.Bar
		err  error
	}
	done := make(chan result, 1)
	go func() {
		bars, err := c.history(symbol, params)
		done <- result{bars: bars, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", symbol, res.err)
	}

	from, to := domain.DateOf(start), domain.DateOf(end)
	bars := make([]domain.Bar, 0, 1)
	for _, bar := range res.bars {
		day := domain.DateOf(bar.Date)
		if day.Start().Before(from.Start()) || !day.Start().Before(to.Start()) {
			continue
		}
		bars = append(bars, domain.Bar{
			Date:  bar.Date,
			Open:  bar.Open,
			High:  bar.High,
			Low:   bar.Low,
			Close: bar.Close,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s (period %s)", ErrNoData, symbol, params.Period)
	}

	c.log.Debug().Str("symbol", symbol).Str("period", params.Period).Int("bars", len(bars)).Msg("Fetched history bars")
	return bars, nil
}

// periodFor picks the shortest Yahoo lookback period covering age
func periodFor(age time.Duration) string {
	const day = 24 * time.Hour
	// Weekends and holidays eat into short periods
	age += 3 * day

	switch {
	case age <= 5*day:
		return "5d"
	case age <= 30*day:
		return "1mo"
	case age <= 90*day:
		return "3mo"
	case age <= 180*day:
		return "6mo"
	case age <= 365*day:
		return "1y"
	case age <= 2*365*day:
		return "2y"
	case age <= 5*365*day:
		return "5y"
	case age <= 10*365*day:
		return "10y"
	default:
		return "max"
	}
}

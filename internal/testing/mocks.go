package testing

import (
	"context"
	"time"

	"github.com/aristath/storable/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockPriceSource is a testify mock of domain.PriceSource
type MockPriceSource struct {
	mock.Mock
}

// Fetch records the call and returns the configured bars and error
func (m *MockPriceSource) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	args := m.Called(ctx, symbol, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bar), args.Error(1)
}

// DailyBar builds a bar dated at market open on date in UTC
func DailyBar(date string, open, high, low, close float64) domain.Bar {
	d := domain.MustParseTradingDate(date)
	return domain.Bar{
		Date:  d.Start().Add(13*time.Hour + 30*time.Minute),
		Open:  open,
		High:  high,
		Low:   low,
		Close: close,
	}
}

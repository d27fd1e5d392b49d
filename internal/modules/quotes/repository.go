package quotes

import (
	"context"
	"fmt"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles quote database operations
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new quote repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "quotes").Logger(),
	}
}

// Insert stores a quote. A quote already stored for the same instrument and date
// is reported as database.ErrConflict and leaves the existing row untouched.
func (r *Repository) Insert(ctx context.Context, q domain.Quote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO quotes (date, stock_id, open, high, low, close) VALUES (?, ?, ?, ?, ?, ?)`,
		q.Date,
		q.InstrumentID,
		q.Open.StringFixed(domain.ValuePrecision),
		q.High.StringFixed(domain.ValuePrecision),
		q.Low.StringFixed(domain.ValuePrecision),
		q.Close.StringFixed(domain.ValuePrecision),
	)
	if err != nil {
		return database.ClassifyError("quotes", err)
	}
	return nil
}

// ForDate returns every quote stored for date, ordered by instrument id
func (r *Repository) ForDate(ctx context.Context, date domain.TradingDate) ([]domain.Quote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, stock_id, open, high, low, close FROM quotes WHERE date = ? ORDER BY stock_id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes for %s: %w", date, err)
	}
	defer rows.Close()

	quotes := make([]domain.Quote, 0)
	for rows.Next() {
		var q domain.Quote
		var open, high, low, closePrice string
		if err := rows.Scan(&q.Date, &q.InstrumentID, &open, &high, &low, &closePrice); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		if q.Open, err = decimal.NewFromString(open); err != nil {
			return nil, fmt.Errorf("invalid open price %q: %w", open, err)
		}
		if q.High, err = decimal.NewFromString(high); err != nil {
			return nil, fmt.Errorf("invalid high price %q: %w", high, err)
		}
		if q.Low, err = decimal.NewFromString(low); err != nil {
			return nil, fmt.Errorf("invalid low price %q: %w", low, err)
		}
		if q.Close, err = decimal.NewFromString(closePrice); err != nil {
			return nil, fmt.Errorf("invalid close price %q: %w", closePrice, err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotes: %w", err)
	}

	return quotes, nil
}

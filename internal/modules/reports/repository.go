// Package reports derives per-holding valuation lines and the daily portfolio summary.
package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles report_lines and report_summary
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new report repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "reports").Logger(),
	}
}

// InsertLine stores a valuation line. A line already stored for the same date and
// symbol is reported as database.ErrConflict.
func (r *Repository) InsertLine(ctx context.Context, line domain.ValuationLine) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_lines
			(date, stock_name, stock_symbol, quantity, open_value, high_value, low_value, close_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		line.Date,
		line.InstrumentName,
		line.InstrumentSymbol,
		line.Quantity.String(),
		line.OpenValue.StringFixed(domain.ValuePrecision),
		line.HighValue.StringFixed(domain.ValuePrecision),
		line.LowValue.StringFixed(domain.ValuePrecision),
		line.CloseValue.StringFixed(domain.ValuePrecision),
	)
	return database.ClassifyError("report_lines", err)
}

// LinesForDate returns the persisted valuation lines for date
func (r *Repository) LinesForDate(ctx context.Context, date domain.TradingDate) ([]domain.ValuationLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, stock_name, stock_symbol, quantity, open_value, high_value, low_value, close_value
		FROM report_lines WHERE date = ? ORDER BY rowid`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query report lines for %s: %w", date, err)
	}
	defer rows.Close()

	lines := make([]domain.ValuationLine, 0)
	for rows.Next() {
		var line domain.ValuationLine
		var qty, open, high, low, closeValue string
		if err := rows.Scan(&line.Date, &line.InstrumentName, &line.InstrumentSymbol, &qty, &open, &high, &low, &closeValue); err != nil {
			return nil, fmt.Errorf("failed to scan report line: %w", err)
		}
		values, err := parseDecimals(qty, open, high, low, closeValue)
		if err != nil {
			return nil, fmt.Errorf("report line %s on %s: %w", line.InstrumentSymbol, date, err)
		}
		line.Quantity, line.OpenValue, line.HighValue, line.LowValue, line.CloseValue =
			values[0], values[1], values[2], values[3], values[4]
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report lines: %w", err)
	}

	return lines, nil
}

// InsertSummary stores the summary for its date. An existing summary for the date
// is reported as database.ErrConflict.
func (r *Repository) InsertSummary(ctx context.Context, s domain.ReportSummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_summary (date, open_value, high_value, low_value, close_value) VALUES (?, ?, ?, ?, ?)`,
		s.Date,
		s.OpenValue.StringFixed(domain.ValuePrecision),
		s.HighValue.StringFixed(domain.ValuePrecision),
		s.LowValue.StringFixed(domain.ValuePrecision),
		s.CloseValue.StringFixed(domain.ValuePrecision),
	)
	return database.ClassifyError("report_summary", err)
}

// ReplaceSummary overwrites the stored summary for its date
func (r *Repository) ReplaceSummary(ctx context.Context, s domain.ReportSummary) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE report_summary SET open_value = ?, high_value = ?, low_value = ?, close_value = ? WHERE date = ?`,
		s.OpenValue.StringFixed(domain.ValuePrecision),
		s.HighValue.StringFixed(domain.ValuePrecision),
		s.LowValue.StringFixed(domain.ValuePrecision),
		s.CloseValue.StringFixed(domain.ValuePrecision),
		s.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to replace summary for %s: %w", s.Date, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no summary stored for %s", s.Date)
	}
	return nil
}

// SummaryForDate returns the stored summary for date, or nil if there is none
func (r *Repository) SummaryForDate(ctx context.Context, date domain.TradingDate) (*domain.ReportSummary, error) {
	var s domain.ReportSummary
	var open, high, low, closeValue string
	err := r.db.QueryRowContext(ctx,
		`SELECT date, open_value, high_value, low_value, close_value FROM report_summary WHERE date = ?`, date).
		Scan(&s.Date, &open, &high, &low, &closeValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get summary for %s: %w", date, err)
	}

	values, err := parseDecimals(open, high, low, closeValue)
	if err != nil {
		return nil, fmt.Errorf("summary on %s: %w", date, err)
	}
	s.OpenValue, s.HighValue, s.LowValue, s.CloseValue = values[0], values[1], values[2], values[3]
	return &s, nil
}

func parseDecimals(raw ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(raw))
	for i, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q: %w", v, err)
		}
		out[i] = d
	}
	return out, nil
}

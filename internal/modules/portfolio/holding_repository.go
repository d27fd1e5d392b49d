// Package portfolio provides the append-only ledger of position deltas and the
// holdings derived from it.
package portfolio

import (
	"context"
	"fmt"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository reads and appends position deltas
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Holdings returns the current net quantity per instrument, ordered by instrument id.
// Instruments whose deltas sum to zero or less are omitted.
func (r *Repository) Holdings(ctx context.Context) ([]domain.Holding, error) {
	query := `SELECT s.id, s.symbol, s.name, p.quantity
		FROM portfolio p
		JOIN stocks s ON s.id = p.stock_id
		ORDER BY s.id, p.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query position deltas: %w", err)
	}
	defer rows.Close()

	// Rows arrive grouped by instrument, so a running total per group is enough
	var all []domain.Holding
	for rows.Next() {
		var inst domain.Instrument
		var raw string
		if err := rows.Scan(&inst.ID, &inst.Symbol, &inst.Name, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan position delta: %w", err)
		}

		qty, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q for %s: %w", raw, inst.Symbol, err)
		}

		if n := len(all); n > 0 && all[n-1].Instrument.ID == inst.ID {
			all[n-1].Quantity = all[n-1].Quantity.Add(qty)
			continue
		}
		all = append(all, domain.Holding{Instrument: inst, Quantity: qty})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position deltas: %w", err)
	}

	holdings := make([]domain.Holding, 0, len(all))
	for _, h := range all {
		if !h.Quantity.IsPositive() {
			r.log.Debug().Str("symbol", h.Instrument.Symbol).Str("quantity", h.Quantity.String()).Msg("Skipping non-positive holding")
			continue
		}
		holdings = append(holdings, h)
	}

	return holdings, nil
}

// Record validates and appends a position delta to the ledger and returns it with its id.
// Existing deltas are never modified.
func (r *Repository) Record(ctx context.Context, delta domain.PositionDelta) (domain.PositionDelta, error) {
	if err := delta.Validate(); err != nil {
		return domain.PositionDelta{}, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolio (stock_id, quantity) VALUES (?, ?)`,
		delta.InstrumentID, delta.Quantity.String(),
	)
	if err != nil {
		return domain.PositionDelta{}, fmt.Errorf("failed to record delta for instrument %d: %w", delta.InstrumentID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.PositionDelta{}, fmt.Errorf("failed to read delta id: %w", err)
	}
	delta.ID = id

	r.log.Info().
		Int64("instrument_id", delta.InstrumentID).
		Str("quantity", delta.Quantity.String()).
		Msg("Position delta recorded")

	return delta, nil
}

// Deltas returns every recorded delta for an instrument in insertion order
func (r *Repository) Deltas(ctx context.Context, instrumentID int64) ([]domain.PositionDelta, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, stock_id, quantity FROM portfolio WHERE stock_id = ? ORDER BY id`, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deltas: %w", err)
	}
	defer rows.Close()

	deltas := make([]domain.PositionDelta, 0)
	for rows.Next() {
		var d domain.PositionDelta
		var raw string
		if err := rows.Scan(&d.ID, &d.InstrumentID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan delta: %w", err)
		}
		if d.Quantity, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", raw, err)
		}
		deltas = append(deltas, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deltas: %w", err)
	}

	return deltas, nil
}

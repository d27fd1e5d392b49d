// Package universe provides access to the tracked instrument list.
package universe

import (
	"context"
	"fmt"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
)

// Repository reads and writes the stocks table
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new instrument repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "instrument").Logger(),
	}
}

// ListPriced returns every instrument that needs an external price: all but cash, in id order
func (r *Repository) ListPriced(ctx context.Context) ([]domain.Instrument, error) {
	return r.list(ctx, `SELECT id, symbol, name FROM stocks WHERE id != ? ORDER BY id`, domain.CashInstrumentID)
}

// ListAll returns every instrument including cash, in id order
func (r *Repository) ListAll(ctx context.Context) ([]domain.Instrument, error) {
	return r.list(ctx, `SELECT id, symbol, name FROM stocks ORDER BY id`)
}

// GetBySymbol returns the instrument with the given symbol, or nil if none exists
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*domain.Instrument, error) {
	var inst domain.Instrument
	err := r.db.QueryRowContext(ctx, `SELECT id, symbol, name FROM stocks WHERE symbol = ?`, symbol).
		Scan(&inst.ID, &inst.Symbol, &inst.Name)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get instrument %s: %w", symbol, err)
	}
	return &inst, nil
}

// Add inserts a new instrument and returns it with its assigned id.
// A duplicate symbol is reported as database.ErrConflict.
func (r *Repository) Add(ctx context.Context, symbol, name string) (domain.Instrument, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO stocks (symbol, name) VALUES (?, ?)`, symbol, name)
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("failed to add instrument %s: %w", symbol, database.ClassifyError("stocks", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("failed to read instrument id: %w", err)
	}

	r.log.Info().Int64("id", id).Str("symbol", symbol).Msg("Instrument added")
	return domain.Instrument{ID: id, Symbol: symbol, Name: name}, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Instrument, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	instruments := make([]domain.Instrument, 0)
	for rows.Next() {
		var inst domain.Instrument
		if err := rows.Scan(&inst.ID, &inst.Symbol, &inst.Name); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruments: %w", err)
	}

	return instruments, nil
}

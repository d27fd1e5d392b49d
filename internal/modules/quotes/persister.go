package quotes

import (
	"context"
	"fmt"

	"github.com/aristath/storable/internal/database"
	"github.com/rs/zerolog"
)

// PersistResult counts what a batch insert did
type PersistResult struct {
	Inserted  int
	Conflicts int
	// Dirty is set when at least one new quote was stored, so reports need recomputing
	Dirty bool
}

// Persister stores ingested quotes one record at a time
type Persister struct {
	repo *Repository
	log  zerolog.Logger
}

// NewPersister creates a persister over a quote repository
func NewPersister(repo *Repository, log zerolog.Logger) *Persister {
	return &Persister{
		repo: repo,
		log:  log.With().Str("component", "quote_persister").Logger(),
	}
}

// Persist inserts each record independently. Records already stored are logged and
// skipped; any other storage error stops the batch and is returned.
func (p *Persister) Persist(ctx context.Context, records []Record) (PersistResult, error) {
	var result PersistResult

	for _, rec := range records {
		err := p.repo.Insert(ctx, rec.Quote)
		switch {
		case err == nil:
			result.Inserted++
			p.log.Info().
				Str("symbol", rec.Symbol).
				Str("date", rec.Quote.Date.String()).
				Msg("Quote recorded")
		case database.IsConflict(err):
			result.Conflicts++
			p.log.Warn().
				Str("symbol", rec.Symbol).
				Str("date", rec.Quote.Date.String()).
				Str("reason", "conflict").
				Msg("Quote already recorded, skipping")
		default:
			return result, fmt.Errorf("failed to store quote for %s on %s: %w", rec.Symbol, rec.Quote.Date, err)
		}
	}

	result.Dirty = result.Inserted > 0
	return result, nil
}

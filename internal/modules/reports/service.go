package reports

import (
	"context"
	"fmt"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	"github.com/rs/zerolog"
)

// HoldingsReader provides the current net holdings
type HoldingsReader interface {
	Holdings(ctx context.Context) ([]domain.Holding, error)
}

// QuoteReader provides the stored quotes for a date
type QuoteReader interface {
	ForDate(ctx context.Context, date domain.TradingDate) ([]domain.Quote, error)
}

// LinesResult counts what UpdateLines did
type LinesResult struct {
	Derived   int
	Inserted  int
	Conflicts int
	Persisted int // lines stored for the date after the update
}

// SummaryResult describes what UpdateSummary did
type SummaryResult struct {
	Summary  domain.ReportSummary
	Inserted bool
	Conflict bool // an identical summary was already stored
	Replaced bool // a stale summary was rewritten from the stored lines
	Skipped  bool // no lines stored for the date
}

// Service computes and stores reports for a date
type Service struct {
	holdings HoldingsReader
	quotes   QuoteReader
	repo     *Repository
	log      zerolog.Logger
}

// NewService creates a new report service
func NewService(holdings HoldingsReader, quotes QuoteReader, repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		holdings: holdings,
		quotes:   quotes,
		repo:     repo,
		log:      log.With().Str("service", "reports").Logger(),
	}
}

// DeriveLines values every current holding against the quotes for date.
// Cash is valued at face; holdings without a quote for date are left out.
func (s *Service) DeriveLines(ctx context.Context, date domain.TradingDate) ([]domain.ValuationLine, error) {
	holdings, err := s.holdings.Holdings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	quotes, err := s.quotes.ForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load quotes: %w", err)
	}

	byInstrument := make(map[int64]*domain.Quote, len(quotes))
	for i := range quotes {
		byInstrument[quotes[i].InstrumentID] = &quotes[i]
	}

	lines := make([]domain.ValuationLine, 0, len(holdings))
	for _, h := range holdings {
		line, ok := domain.Valuate(date, h, byInstrument[h.Instrument.ID])
		if !ok {
			s.log.Debug().
				Str("symbol", h.Instrument.Symbol).
				Str("date", date.String()).
				Msg("No quote for holding, excluded from report")
			continue
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// UpdateLines derives and stores the valuation lines for date.
// Lines already stored are logged and skipped; other storage errors are returned.
func (s *Service) UpdateLines(ctx context.Context, date domain.TradingDate) (LinesResult, error) {
	lines, err := s.DeriveLines(ctx, date)
	if err != nil {
		return LinesResult{}, err
	}

	result := LinesResult{Derived: len(lines)}
	for _, line := range lines {
		err := s.repo.InsertLine(ctx, line)
		switch {
		case err == nil:
			result.Inserted++
			s.log.Info().
				Str("symbol", line.InstrumentSymbol).
				Str("date", date.String()).
				Str("close_value", line.CloseValue.StringFixed(domain.ValuePrecision)).
				Msg("Report line recorded")
		case database.IsConflict(err):
			result.Conflicts++
			s.log.Warn().
				Str("symbol", line.InstrumentSymbol).
				Str("date", date.String()).
				Str("reason", "conflict").
				Msg("Report line already recorded, skipping")
		default:
			return result, fmt.Errorf("failed to store report line for %s on %s: %w", line.InstrumentSymbol, date, err)
		}
	}

	persisted, err := s.repo.LinesForDate(ctx, date)
	if err != nil {
		return result, err
	}
	result.Persisted = len(persisted)

	return result, nil
}

// UpdateSummary sums the stored lines for date into the daily summary and stores it.
// A stored summary that no longer matches the lines (a line arrived later) is replaced.
func (s *Service) UpdateSummary(ctx context.Context, date domain.TradingDate) (SummaryResult, error) {
	lines, err := s.repo.LinesForDate(ctx, date)
	if err != nil {
		return SummaryResult{}, err
	}
	if len(lines) == 0 {
		s.log.Info().Str("date", date.String()).Msg("No report lines for date, summary skipped")
		return SummaryResult{Skipped: true}, nil
	}

	summary := domain.Summarize(date, lines)
	result := SummaryResult{Summary: summary}

	err = s.repo.InsertSummary(ctx, summary)
	switch {
	case err == nil:
		result.Inserted = true
		s.log.Info().
			Str("date", date.String()).
			Str("open_value", summary.OpenValue.StringFixed(domain.ValuePrecision)).
			Str("close_value", summary.CloseValue.StringFixed(domain.ValuePrecision)).
			Msg("Report summary recorded")
		return result, nil
	case database.IsConflict(err):
	default:
		return result, fmt.Errorf("failed to store report summary for %s: %w", date, err)
	}

	stored, err := s.repo.SummaryForDate(ctx, date)
	if err != nil {
		return result, err
	}
	if stored != nil && sameTotals(*stored, summary) {
		result.Conflict = true
		s.log.Warn().
			Str("date", date.String()).
			Str("reason", "conflict").
			Msg("Report summary already recorded, skipping")
		return result, nil
	}

	if err := s.repo.ReplaceSummary(ctx, summary); err != nil {
		return result, err
	}
	result.Replaced = true

	event := s.log.Info().
		Str("date", date.String()).
		Str("close_value", summary.CloseValue.StringFixed(domain.ValuePrecision))
	if stored != nil {
		event = event.Str("previous_close_value", stored.CloseValue.StringFixed(domain.ValuePrecision))
	}
	event.Msg("Report summary replaced, lines changed since it was recorded")

	return result, nil
}

func sameTotals(a, b domain.ReportSummary) bool {
	return a.OpenValue.Equal(b.OpenValue) &&
		a.HighValue.Equal(b.HighValue) &&
		a.LowValue.Equal(b.LowValue) &&
		a.CloseValue.Equal(b.CloseValue)
}

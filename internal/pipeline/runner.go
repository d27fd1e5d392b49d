// Package pipeline runs the daily valuation: quote ingestion, valuation lines and summary.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	"github.com/aristath/storable/internal/modules/portfolio"
	"github.com/aristath/storable/internal/modules/quotes"
	"github.com/aristath/storable/internal/modules/reports"
	"github.com/aristath/storable/internal/modules/universe"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Stage is a pipeline state. Stages only move forward.
type Stage string

const (
	StageValidated    Stage = "validated"
	StageIngested     Stage = "ingested"
	StageQuoted       Stage = "quoted"
	StageLinesDerived Stage = "lines_derived"
	StageSummarized   Stage = "summarized"
	StageFailed       Stage = "failed"
)

// Run is the record of one pipeline invocation
type Run struct {
	ID         string
	Date       domain.TradingDate
	StartedAt  time.Time
	FinishedAt time.Time
	Stage      Stage
	// Gated is set when no new quote was stored and the report stages were skipped
	Gated   bool
	Ingest  quotes.IngestResult
	Quotes  quotes.PersistResult
	Lines   reports.LinesResult
	Summary reports.SummaryResult
}

// Ingester fetches the day's quotes for a set of instruments
type Ingester interface {
	Ingest(ctx context.Context, date domain.TradingDate, instruments []domain.Instrument) quotes.IngestResult
}

// Runner executes pipeline runs against one database
type Runner struct {
	conn     *sql.DB
	ingestor Ingester
	journal  *Journal
	now      func() time.Time
	log      zerolog.Logger
}

// NewRunner creates a pipeline runner
func NewRunner(conn *sql.DB, ingestor Ingester, log zerolog.Logger) *Runner {
	return &Runner{
		conn:     conn,
		ingestor: ingestor,
		journal:  NewJournal(conn),
		now:      time.Now,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the full pipeline for rawDate. A malformed date fails before any I/O.
// Quotes are fetched first; storing them and deriving reports then happens in one transaction.
func (r *Runner) Run(ctx context.Context, rawDate string) (*Run, error) {
	date, err := domain.ParseTradingDate(rawDate)
	if err != nil {
		return nil, err
	}

	run := r.start(date)
	log := r.log.With().Str("run_id", run.ID).Str("date", date.String()).Logger()
	log.Info().Msg("Pipeline started")

	instruments, err := universe.NewRepository(r.conn, r.log).ListPriced(ctx)
	if err != nil {
		return r.fail(ctx, run, fmt.Errorf("failed to list instruments: %w", err))
	}

	run.Ingest = r.ingestor.Ingest(ctx, date, instruments)
	r.advance(log, run, StageIngested)

	err = database.WithTransaction(ctx, r.conn, func(tx *sql.Tx) error {
		quoteRepo := quotes.NewRepository(tx, r.log)

		persisted, err := quotes.NewPersister(quoteRepo, r.log).Persist(ctx, run.Ingest.Records)
		run.Quotes = persisted
		if err != nil {
			return err
		}
		r.advance(log, run, StageQuoted)

		if !run.Quotes.Dirty {
			run.Gated = true
			log.Info().Msg("No new quotes stored, reports left unchanged")
		} else if err := r.updateReports(ctx, log, tx, quoteRepo, run); err != nil {
			return err
		}

		run.FinishedAt = r.now()
		return r.journal.Record(ctx, tx, run)
	})
	if err != nil {
		return r.fail(ctx, run, err)
	}

	r.logFinished(log, run)
	return run, nil
}

// Recompute derives lines and the summary for rawDate from what is already stored,
// without fetching and regardless of whether any quote is new. Missing lines are added
// and a summary that no longer matches the stored lines is rewritten.
func (r *Runner) Recompute(ctx context.Context, rawDate string) (*Run, error) {
	date, err := domain.ParseTradingDate(rawDate)
	if err != nil {
		return nil, err
	}

	run := r.start(date)
	log := r.log.With().Str("run_id", run.ID).Str("date", date.String()).Str("mode", "recompute").Logger()
	log.Info().Msg("Recompute started")

	err = database.WithTransaction(ctx, r.conn, func(tx *sql.Tx) error {
		if err := r.updateReports(ctx, log, tx, quotes.NewRepository(tx, r.log), run); err != nil {
			return err
		}
		run.FinishedAt = r.now()
		return r.journal.Record(ctx, tx, run)
	})
	if err != nil {
		return r.fail(ctx, run, err)
	}

	r.logFinished(log, run)
	return run, nil
}

// updateReports runs line derivation and, when the date has stored lines, the summary
func (r *Runner) updateReports(ctx context.Context, log zerolog.Logger, tx *sql.Tx, quoteRepo *quotes.Repository, run *Run) error {
	svc := reports.NewService(portfolio.NewRepository(tx, r.log), quoteRepo, reports.NewRepository(tx, r.log), r.log)

	lines, err := svc.UpdateLines(ctx, run.Date)
	if err != nil {
		return err
	}
	run.Lines = lines
	r.advance(log, run, StageLinesDerived)

	if lines.Persisted == 0 {
		log.Info().Msg("No report lines for date, summary skipped")
		run.Summary = reports.SummaryResult{Skipped: true}
		return nil
	}

	run.Summary, err = svc.UpdateSummary(ctx, run.Date)
	if err != nil {
		return err
	}
	r.advance(log, run, StageSummarized)
	return nil
}

func (r *Runner) start(date domain.TradingDate) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Date:      date,
		StartedAt: r.now(),
		Stage:     StageValidated,
	}
}

func (r *Runner) advance(log zerolog.Logger, run *Run, stage Stage) {
	log.Debug().Str("from", string(run.Stage)).Str("to", string(stage)).Msg("Pipeline stage")
	run.Stage = stage
}

// fail journals the failed run outside the rolled-back transaction and returns cause
func (r *Runner) fail(ctx context.Context, run *Run, cause error) (*Run, error) {
	reached := run.Stage
	run.Stage = StageFailed
	run.FinishedAt = r.now()

	if err := r.journal.Record(ctx, r.conn, run); err != nil {
		r.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to journal failed run")
	}

	r.log.Error().
		Err(cause).
		Str("run_id", run.ID).
		Str("date", run.Date.String()).
		Str("reached", string(reached)).
		Msg("Pipeline failed")

	return run, fmt.Errorf("pipeline run for %s failed after stage %s: %w", run.Date, reached, cause)
}

func (r *Runner) logFinished(log zerolog.Logger, run *Run) {
	log.Info().
		Str("stage", string(run.Stage)).
		Bool("gated", run.Gated).
		Int("quotes_fetched", len(run.Ingest.Records)).
		Int("quotes_skipped", len(run.Ingest.Skipped)).
		Int("fetch_failures", len(run.Ingest.Failed)).
		Int("quotes_inserted", run.Quotes.Inserted).
		Int("lines_inserted", run.Lines.Inserted).
		Bool("summary_inserted", run.Summary.Inserted).
		Bool("summary_replaced", run.Summary.Replaced).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("Pipeline finished")
}

package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
)

// RunRecord is one row of the run journal
type RunRecord struct {
	RunID           string
	Date            domain.TradingDate
	StartedAt       time.Time
	FinishedAt      *time.Time
	FinalStage      Stage
	QuotesFetched   int
	QuotesSkipped   int
	FetchFailures   int
	QuotesInserted  int
	LinesInserted   int
	SummaryInserted bool
}

// Journal stores one pipeline_runs row per invocation
type Journal struct {
	conn *sql.DB
}

// NewJournal creates a run journal
func NewJournal(conn *sql.DB) *Journal {
	return &Journal{conn: conn}
}

// Record writes the run through q, which may be the run's own transaction
func (j *Journal) Record(ctx context.Context, q database.Querier, run *Run) error {
	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(time.RFC3339)
	}

	// A replaced summary counts as written
	summaryInserted := 0
	if run.Summary.Inserted || run.Summary.Replaced {
		summaryInserted = 1
	}

	_, err := q.ExecContext(ctx, `INSERT INTO pipeline_runs
		(run_id, date, started_at, finished_at, final_stage, quotes_fetched, quotes_skipped,
		 fetch_failures, quotes_inserted, lines_inserted, summary_inserted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Date,
		run.StartedAt.UTC().Format(time.RFC3339),
		finished,
		string(run.Stage),
		len(run.Ingest.Records),
		len(run.Ingest.Skipped),
		len(run.Ingest.Failed),
		run.Quotes.Inserted,
		run.Lines.Inserted,
		summaryInserted,
	)
	if err != nil {
		return fmt.Errorf("failed to record pipeline run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := j.conn.QueryContext(ctx, `SELECT run_id, date, started_at, finished_at, final_stage,
		quotes_fetched, quotes_skipped, fetch_failures, quotes_inserted, lines_inserted, summary_inserted
		FROM pipeline_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0)
	for rows.Next() {
		var rec RunRecord
		var started string
		var finished sql.NullString
		var stage string
		var summary int
		if err := rows.Scan(&rec.RunID, &rec.Date, &started, &finished, &stage,
			&rec.QuotesFetched, &rec.QuotesSkipped, &rec.FetchFailures,
			&rec.QuotesInserted, &rec.LinesInserted, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}

		if rec.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("invalid started_at %q: %w", started, err)
		}
		if finished.Valid {
			t, err := time.Parse(time.RFC3339, finished.String)
			if err != nil {
				return nil, fmt.Errorf("invalid finished_at %q: %w", finished.String, err)
			}
			rec.FinishedAt = &t
		}
		rec.FinalStage = Stage(stage)
		rec.SummaryInserted = summary == 1
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipeline runs: %w", err)
	}

	return records, nil
}

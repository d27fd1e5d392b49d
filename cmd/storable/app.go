package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aristath/storable/internal/config"
	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/di"
	"github.com/aristath/storable/internal/domain"
	"github.com/aristath/storable/internal/pipeline"
	"github.com/aristath/storable/pkg/logger"
	"github.com/rs/zerolog"
)

// Output streams, replaced in tests
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// loadConfig reads the configuration and builds the root logger from it
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logger.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: stderr,
	})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}

// openDatabase loads the configuration and opens the migrated portfolio database.
// It does not build a price source, for commands that only touch the ledger.
func openDatabase() (*database.DB, zerolog.Logger, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, log, err
	}

	db, err := di.InitializeDatabase(cfg)
	if err != nil {
		return nil, log, err
	}
	return db, log, nil
}

// bootstrap loads the configuration and wires every dependency.
// The caller closes the returned container.
func bootstrap(ctx context.Context) (*di.Container, zerolog.Logger, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, log, err
	}

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return nil, log, err
	}

	return container, log, nil
}

func printRun(w io.Writer, run *pipeline.Run) {
	fmt.Fprintf(w, "run %s date=%s stage=%s\n", run.ID, run.Date, run.Stage)
	fmt.Fprintf(w, "  quotes: fetched=%d skipped=%d failed=%d inserted=%d conflicts=%d\n",
		len(run.Ingest.Records), len(run.Ingest.Skipped), len(run.Ingest.Failed),
		run.Quotes.Inserted, run.Quotes.Conflicts)

	if run.Gated {
		fmt.Fprintln(w, "  reports: unchanged (no new quotes)")
		return
	}
	fmt.Fprintf(w, "  lines: derived=%d inserted=%d conflicts=%d\n",
		run.Lines.Derived, run.Lines.Inserted, run.Lines.Conflicts)

	switch {
	case run.Summary.Skipped:
		fmt.Fprintln(w, "  summary: skipped (no lines)")
	case run.Summary.Inserted:
		printSummary(w, "summary", run.Summary.Summary)
	case run.Summary.Replaced:
		printSummary(w, "summary (replaced)", run.Summary.Summary)
	default:
		fmt.Fprintln(w, "  summary: already stored")
	}
}

func printSummary(w io.Writer, label string, s domain.ReportSummary) {
	fmt.Fprintf(w, "  %s: open=%s high=%s low=%s close=%s\n", label,
		s.OpenValue.StringFixed(2), s.HighValue.StringFixed(2),
		s.LowValue.StringFixed(2), s.CloseValue.StringFixed(2))
}

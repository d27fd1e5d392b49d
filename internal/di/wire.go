package di

import (
	"context"
	"fmt"

	"github.com/aristath/storable/internal/clients/yahoo"
	"github.com/aristath/storable/internal/config"
	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/modules/quotes"
	"github.com/aristath/storable/internal/pipeline"
	"github.com/aristath/storable/internal/reliability"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open and migrate the portfolio database
// 2. Build the price source and pipeline
// 3. Build the backup service when a bucket is configured
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load market timezone: %w", err)
	}

	// Step 1: Database
	db, err := InitializeDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	container := &Container{
		Config:   cfg,
		DB:       db,
		Location: loc,
		Journal:  pipeline.NewJournal(db.Conn()),
	}

	// Step 2: Price source and pipeline
	source, err := yahoo.NewPriceSource(cfg, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize price source: %w", err)
	}
	container.Source = source

	ingestor := quotes.NewIngestor(source, cfg.FetchTimeout, cfg.FetchConcurrency, log)
	container.Runner = pipeline.NewRunner(db.Conn(), ingestor, log)

	// Step 3: Backups (optional)
	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize backup storage: %w", err)
		}
		container.Backup = reliability.NewBackupService(store, db, cfg.DataDir, log)
	}

	log.Info().
		Str("database", db.Path()).
		Str("driver", db.Driver()).
		Str("price_source", cfg.PriceSource).
		Bool("backups", container.Backup != nil).
		Msg("Dependencies wired")

	return container, nil
}

// InitializeDatabase opens the portfolio database with the ledger profile and applies its schema
func InitializeDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Driver:  cfg.DatabaseDriver,
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", db.Name(), err)
	}

	return db, nil
}

// Close releases the database handle
func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

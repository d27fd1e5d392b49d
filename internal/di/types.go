// Package di provides dependency injection type definitions.
package di

import (
	"time"

	"github.com/aristath/storable/internal/config"
	"github.com/aristath/storable/internal/database"
	"github.com/aristath/storable/internal/domain"
	"github.com/aristath/storable/internal/pipeline"
	"github.com/aristath/storable/internal/reliability"
	"github.com/aristath/storable/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire() and released with Close().
type Container struct {
	Config   *config.Config
	DB       *database.DB
	Location *time.Location

	Source  domain.PriceSource
	Runner  *pipeline.Runner
	Journal *pipeline.Journal

	// Backup is nil when no bucket is configured
	Backup *reliability.BackupService
}

// JobInstances holds the scheduled jobs for manual triggering
type JobInstances struct {
	DailyUpdate *scheduler.DailyUpdateJob
	Maintenance *reliability.MaintenanceJob
}

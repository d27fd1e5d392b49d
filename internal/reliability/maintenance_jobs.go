// Package reliability keeps the portfolio database healthy and backed up.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// MaintainedDB is the database surface maintenance needs
type MaintainedDB interface {
	HealthCheck(ctx context.Context) error
	Checkpoint(ctx context.Context) error
	Name() string
}

// DiskUsageFunc reports free bytes on the filesystem holding path
type DiskUsageFunc func(ctx context.Context, path string) (uint64, error)

// MaintenanceJob performs daily database maintenance
type MaintenanceJob struct {
	db            MaintainedDB
	backup        *BackupService // nil when backups are disabled
	retentionDays int
	dataDir       string
	minFreeBytes  uint64
	diskUsage     DiskUsageFunc
	timeout       time.Duration
	log           zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(
	db MaintainedDB,
	backup *BackupService,
	retentionDays int,
	dataDir string,
	minFreeMB int,
	log zerolog.Logger,
) *MaintenanceJob {
	return &MaintenanceJob{
		db:            db,
		backup:        backup,
		retentionDays: retentionDays,
		dataDir:       dataDir,
		minFreeBytes:  uint64(minFreeMB) * 1024 * 1024,
		diskUsage:     freeBytes,
		timeout:       10 * time.Minute,
		log:           log.With().Str("job", "daily_maintenance").Logger(),
	}
}

func freeBytes(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// Run executes the maintenance steps
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	// Step 1: Integrity check
	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("CRITICAL: Database failed integrity check")
		return fmt.Errorf("CRITICAL: %s failed integrity check: %w", j.db.Name(), err)
	}

	// Step 2: WAL checkpoint (prevent bloat)
	if err := j.db.Checkpoint(ctx); err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
	}

	// Step 3: Check disk space
	if err := j.checkDiskSpace(ctx); err != nil {
		return err
	}

	// Step 4: Rotate bucket backups
	if j.backup != nil {
		if _, err := j.backup.RotateOldBackups(ctx, j.retentionDays); err != nil {
			j.log.Error().Err(err).Msg("Backup rotation failed")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "daily_maintenance"
}

// checkDiskSpace verifies sufficient disk space is available for the database
func (j *MaintenanceJob) checkDiskSpace(ctx context.Context) error {
	free, err := j.diskUsage(ctx, j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read disk usage: %w", err)
	}

	availableMB := free / 1024 / 1024
	j.log.Debug().Uint64("available_mb", availableMB).Msg("Disk space check")

	if free < j.minFreeBytes {
		j.log.Error().
			Uint64("available_mb", availableMB).
			Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("CRITICAL: only %d MB free in %s", availableMB, j.dataDir)
	}

	return nil
}

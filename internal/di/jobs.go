package di

import (
	"fmt"
	"time"

	"github.com/aristath/storable/internal/reliability"
	"github.com/aristath/storable/internal/scheduler"
	"github.com/rs/zerolog"
)

// dailyUpdateTimeout bounds one scheduled run including its backup upload
const dailyUpdateTimeout = 30 * time.Minute

// RegisterJobs creates the daily update and maintenance jobs and adds them to sched
func RegisterJobs(container *Container, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	cfg := container.Config

	// A nil *BackupService must not reach the job as a non-nil interface
	var backup scheduler.Backuper
	if container.Backup != nil {
		backup = container.Backup
	}

	instances := &JobInstances{
		DailyUpdate: scheduler.NewDailyUpdateJob(
			container.Runner,
			backup,
			container.Location,
			dailyUpdateTimeout,
			log,
		),
		Maintenance: reliability.NewMaintenanceJob(
			container.DB,
			container.Backup,
			cfg.Backup.RetentionDays,
			cfg.DataDir,
			cfg.MinFreeDiskMB,
			log,
		),
	}

	if err := sched.AddJob(cfg.UpdateSchedule, instances.DailyUpdate); err != nil {
		return nil, fmt.Errorf("failed to register daily_update job: %w", err)
	}
	if err := sched.AddJob(cfg.MaintenanceSchedule, instances.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register daily_maintenance job: %w", err)
	}

	return instances, nil
}

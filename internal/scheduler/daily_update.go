package scheduler

import (
	"context"
	"time"

	"github.com/aristath/storable/internal/domain"
	"github.com/aristath/storable/internal/pipeline"
	"github.com/rs/zerolog"
)

// PipelineRunner runs the pipeline for a date
type PipelineRunner interface {
	Run(ctx context.Context, rawDate string) (*pipeline.Run, error)
}

// Backuper uploads a database backup
type Backuper interface {
	CreateAndUpload(ctx context.Context) error
}

// DailyUpdateJob runs the pipeline for today's date in the market timezone,
// then uploads a backup when one is configured
type DailyUpdateJob struct {
	runner  PipelineRunner
	backup  Backuper
	loc     *time.Location
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewDailyUpdateJob creates the daily update job. backup may be nil.
func NewDailyUpdateJob(runner PipelineRunner, backup Backuper, loc *time.Location, timeout time.Duration, log zerolog.Logger) *DailyUpdateJob {
	return &DailyUpdateJob{
		runner:  runner,
		backup:  backup,
		loc:     loc,
		timeout: timeout,
		now:     time.Now,
		log:     log.With().Str("job", "daily_update").Logger(),
	}
}

// Name returns the job name
func (j *DailyUpdateJob) Name() string {
	return "daily_update"
}

// Today returns the current calendar date in the market timezone
func (j *DailyUpdateJob) Today() domain.TradingDate {
	return domain.DateOf(j.now().In(j.loc))
}

// Run executes the pipeline for today. A failed backup is logged, not returned.
func (j *DailyUpdateJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	date := j.Today()
	run, err := j.runner.Run(ctx, date.String())
	if err != nil {
		return err
	}

	j.log.Info().Str("date", date.String()).Str("run_id", run.ID).Str("stage", string(run.Stage)).Msg("Daily update done")

	if j.backup == nil || run.Gated {
		return nil
	}
	if err := j.backup.CreateAndUpload(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup after daily update failed")
	}
	return nil
}

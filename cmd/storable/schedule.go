package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/aristath/storable/internal/di"
	"github.com/aristath/storable/internal/scheduler"
	"github.com/aristath/storable/internal/version"
	"github.com/google/subcommands"
)

type scheduleCmd struct {
	now bool
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "run the daily update on a cron schedule" }
func (*scheduleCmd) Usage() string {
	return `schedule [-now]

  Runs the daily update (UPDATE_SCHEDULE) for today's date in MARKET_TIMEZONE and
  database maintenance (MAINTENANCE_SCHEDULE) until interrupted.
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.now, "now", false, "Also run the daily update once at startup")
}

func (c *scheduleCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, log, err := bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	sched := scheduler.New(container.Location, log)
	jobs, err := di.RegisterJobs(container, sched, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	sched.Start()
	log.Info().Str("version", version.Version).Msg("Storable scheduler running")
	for _, job := range []scheduler.Job{jobs.DailyUpdate, jobs.Maintenance} {
		if next, ok := sched.NextRun(job.Name()); ok {
			log.Info().Str("job", job.Name()).Time("next_run", next).Msg("Next run")
		}
	}

	if c.now {
		if err := sched.RunNow(jobs.DailyUpdate); err != nil {
			log.Error().Err(err).Msg("Startup update failed")
		}
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	return subcommands.ExitSuccess
}

// Package scheduler runs the daily pipeline on a cron schedule.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrJobRunning is returned by RunNow when the job is already executing
var ErrJobRunning = errors.New("job is already running")

// Job is a unit of scheduled work
type Job interface {
	Run() error
	Name() string
}

// Scheduler fires registered jobs on cron schedules read in one location.
// A job never overlaps itself: a firing that finds it busy is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	running map[string]*sync.Mutex
}

// New creates a scheduler. Schedules use a seconds field and are read in loc (local time if nil).
func New(loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		log:     log.With().Str("component", "scheduler").Logger(),
		entries: make(map[string]cron.EntryID),
		running: make(map[string]*sync.Mutex),
	}
}

// AddJob registers job under its name. Examples:
//   - "0 30 18 * * MON-FRI" weekdays at 18:30
//   - "@every 30s"
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[job.Name()]; exists {
		return fmt.Errorf("job %s is already registered", job.Name())
	}

	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.execute(job); err != nil && !errors.Is(err, ErrJobRunning) {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("Scheduled job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, job.Name(), err)
	}

	s.entries[job.Name()] = id
	s.running[job.Name()] = &sync.Mutex{}
	s.log.Info().Str("job", job.Name()).Str("schedule", schedule).Msg("Job registered")
	return nil
}

// RunNow executes job immediately on the calling goroutine
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

func (s *Scheduler) execute(job Job) error {
	guard := s.guard(job.Name())
	if !guard.TryLock() {
		s.log.Warn().Str("job", job.Name()).Msg("Job still running, skipping this run")
		return ErrJobRunning
	}
	defer guard.Unlock()

	started := time.Now()
	err := job.Run()
	s.log.Debug().Str("job", job.Name()).Dur("duration", time.Since(started)).Bool("ok", err == nil).Msg("Job finished")
	return err
}

func (s *Scheduler) guard(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.running[name]
	if !ok {
		m = &sync.Mutex{}
		s.running[name] = m
	}
	return m
}

// NextRun reports when the named job fires next. ok is false for unknown jobs
// and before Start.
func (s *Scheduler) NextRun(name string) (next time.Time, ok bool) {
	s.mu.Lock()
	id, exists := s.entries[name]
	s.mu.Unlock()
	if !exists {
		return time.Time{}, false
	}
	next = s.cron.Entry(id).Next
	return next, !next.IsZero()
}

// Entries returns how many jobs are registered
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", s.Entries()).Msg("Scheduler started")
}

// Stop halts firing and waits for running jobs to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"

	"gsc-insights/internal/domain"
)

// Runner executes one job.
type Runner interface {
	RunJob(ctx context.Context, job Job) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job Job) error

// RunJob calls f.
func (f RunnerFunc) RunJob(ctx context.Context, job Job) error { return f(ctx, job) }

// Scheduler manages cron-based job execution. A run still in progress when
// its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *slog.Logger
	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID // job name → cron entry
	ctx     context.Context
}

// New creates a scheduler that hands every due job to runner.
func New(runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:  runner,
		logger:  logger,
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
}

// Start adds jobs and starts the cron scheduler. Runs use ctx, so cancelling
// it aborts jobs in flight.
func (s *Scheduler) Start(ctx context.Context, jobs []Job) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	if err := s.Reload(jobs); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(jobs))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Reload replaces every scheduled job. Nothing changes when a job is
// invalid.
func (s *Scheduler) Reload(jobs []Job) error {
	for _, j := range jobs {
		if err := j.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entryID := range s.entries {
		s.cron.Remove(entryID)
	}
	s.entries = make(map[string]cron.EntryID)
	s.jobs = make(map[string]Job)

	for _, j := range jobs {
		entryID, err := s.cron.AddFunc(j.Cron, func() { s.run(j) })
		if err != nil {
			return fmt.Errorf("schedule %q: %w", j.Name, err)
		}
		s.entries[j.Name] = entryID
		s.jobs[j.Name] = j
		s.logger.Info("scheduled job", "job", j.Name, "schedule", j.Cron)
	}
	return nil
}

// Jobs returns the names of scheduled jobs, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RunNow runs a scheduled job immediately and returns its error.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return domain.ErrNotFound("job %q is not scheduled", name)
	}
	return s.runner.RunJob(ctx, j)
}

func (s *Scheduler) run(j Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.logger.Info("running scheduled job", "job", j.Name)
	if err := s.runner.RunJob(ctx, j); err != nil {
		s.logger.Warn("scheduled job failed", "job", j.Name, "error", err)
	}
}

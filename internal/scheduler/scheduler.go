package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Runner is a schedulable background job
type Runner interface {
	Run(ctx context.Context)
}

// Scheduler drives the background jobs on independent cron triggers.
// Overlapping invocations of the same job are skipped; different jobs
// never block each other.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
}

// New creates a Scheduler. Jobs are registered with Add before Start.
func New(logger *slog.Logger) *Scheduler {
	cronLogger := cron.DefaultLogger
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))
	return &Scheduler{
		cron:   c,
		logger: logger,
	}
}

// Add registers a job under a cron spec such as "@every 2m" or
// "0 8 * * *". The job receives a background context per invocation.
func (s *Scheduler) Add(name, spec string, job Runner) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("scheduled job starting", slog.String("job", name))
		job.Run(context.Background())
		s.logger.Debug("scheduled job finished", slog.String("job", name))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s (%q): %w", name, spec, err)
	}
	s.logger.Info("scheduled job registered",
		slog.String("job", name),
		slog.String("spec", spec))
	return nil
}

// Start begins triggering registered jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops triggering new runs and waits for active jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

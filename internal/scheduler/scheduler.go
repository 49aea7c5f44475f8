// Package scheduler runs the daily scan job on a cron schedule for daemon
// mode.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner with structured logging around each job.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// New creates a Scheduler. Specs use the six-field form with seconds, e.g.
// "0 5 23 * * 1-5" for 23:05 on weekdays. A nil logger falls back to
// slog.Default.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  logger.With("component", "scheduler"),
	}
}

// Register adds a named job at the given cron spec.
func (s *Scheduler) Register(name, spec string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Info("job starting", "job", name)
		job()
		s.log.Info("job finished", "job", name)
	})
	if err != nil {
		return fmt.Errorf("registering job %s (%q): %w", name, spec, err)
	}
	s.log.Info("job registered", "job", name, "spec", spec)
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops scheduling new runs and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

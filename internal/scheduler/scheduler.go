// Package scheduler runs background ledger jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"pagos/internal/log"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	log     *log.Logger
	ctx     context.Context
	timeout time.Duration
}

// New creates a new scheduler. Jobs run with a context derived from ctx and
// bounded by timeout.
func New(ctx context.Context, logger *log.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		log:     logger.WithComponent(log.ComponentScheduler),
		ctx:     ctx,
		timeout: timeout,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// AddJob registers a job with a standard cron schedule
// Schedule examples:
//   - "@daily"          - Midnight every day
//   - "0 6 * * *"       - 6 AM every day
//   - "@every 1h"       - Every hour
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		_ = s.RunNow(job)
	})
	if err != nil {
		return err
	}

	s.log.Info("Job registered",
		"schedule", schedule,
		"job", job.Name())
	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	s.log.Debug("Running job", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		s.log.Error("Job failed",
			"job", job.Name(),
			log.FieldError, err)
		return err
	}
	s.log.Debug("Job completed",
		"job", job.Name(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

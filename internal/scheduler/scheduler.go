package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MrAk1876/carRent-sub002/internal/jobs"
	"github.com/MrAk1876/carRent-sub002/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
	log  *slog.Logger
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
		log:  logger.With("component", "scheduler"),
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	_, err := s.cron.AddFunc(cfg.PaymentTimeoutSweep, s.jobs.SweepPaymentTimeouts)
	if err != nil {
		s.log.Error("Failed to register SweepPaymentTimeouts job", "error", err)
	}

	_, err = s.cron.AddFunc(cfg.RecomputeOverdue, s.jobs.RecomputeOverdue)
	if err != nil {
		s.log.Error("Failed to register RecomputeOverdue job", "error", err)
	}

	_, err = s.cron.AddFunc(cfg.ResolveMaintenance, s.jobs.ResolveDueMaintenance)
	if err != nil {
		s.log.Error("Failed to register ResolveDueMaintenance job", "error", err)
	}

	s.log.Info("All cron jobs registered successfully")
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.log.Info("Starting cron scheduler...")
	s.cron.Start()
	s.log.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	s.log.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has registered entries
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

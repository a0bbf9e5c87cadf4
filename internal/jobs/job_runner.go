package jobs

import (
	"sync"
	"time"

	"github.com/MrAk1876/carRent-sub002/internal/config"
	"github.com/MrAk1876/carRent-sub002/internal/logger"
	"github.com/MrAk1876/carRent-sub002/internal/repository"
)

// JobRunner coordinates all scheduled maintenance work: the payment-timeout
// sweep, the overdue recompute pass and fleet maintenance resolution.
type JobRunner struct {
	vehicleRepo repository.VehicleRepository
	bookingRepo repository.BookingRepository
	noteRepo    repository.NotificationRepository
	config      *config.Config
	now         func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

// NewJobRunner creates a job runner. Pass a nil clock to use wall time.
func NewJobRunner(
	vehicleRepo repository.VehicleRepository,
	bookingRepo repository.BookingRepository,
	noteRepo repository.NotificationRepository,
	cfg *config.Config,
	clock func() time.Time,
) *JobRunner {
	if clock == nil {
		clock = time.Now
	}
	return &JobRunner{
		vehicleRepo: vehicleRepo,
		bookingRepo: bookingRepo,
		noteRepo:    noteRepo,
		config:      cfg,
		now:         clock,
	}
}

// Config exposes the runner's configuration to the scheduler.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery so a failing job
// cannot take down the scheduler.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllJobs runs every periodic job once, for manual execution.
func (jr *JobRunner) RunAllJobs() {
	jr.SweepPaymentTimeouts()
	jr.RecomputeOverdue()
	jr.ResolveDueMaintenance()
}

package jobs

import (
	"context"
	"fmt"

	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/logger"
)

// paymentTimeoutReason is the cancel reason stamped on swept bookings.
const paymentTimeoutReason = "Payment timeout"

// SweepResult summarizes one payment-timeout pass.
type SweepResult struct {
	CancelledCount       int
	ReleasedVehicleCount int
}

// SweepPaymentTimeouts is the cron entrypoint for the payment-timeout sweep.
func (jr *JobRunner) SweepPaymentTimeouts() {
	jr.runWithRecovery("SweepPaymentTimeouts", func() {
		result, err := jr.RunPaymentTimeoutSweep(context.Background())
		if err != nil {
			logger.Error("Payment timeout sweep failed", "error", err)
			return
		}
		logger.Info("Payment timeout sweep finished",
			"cancelled", result.CancelledCount,
			"vehicles_released", result.ReleasedVehicleCount)
	})
}

// RunPaymentTimeoutSweep cancels every pending-payment booking whose advance
// deadline has lapsed unpaid, then releases the vehicles those bookings were
// holding. Overlapping invocations are serialized, and a pass that starts
// within the configured minimum interval of the previous successful one is
// skipped; a failed pass does not consume the interval.
// Each booking qualifies at most once, so repeating the sweep is a no-op.
func (jr *JobRunner) RunPaymentTimeoutSweep(ctx context.Context) (*SweepResult, error) {
	jr.mu.Lock()
	defer jr.mu.Unlock()

	now := jr.now().UTC()
	if !jr.lastSweep.IsZero() && now.Sub(jr.lastSweep) < jr.config.Rental.SweepMinInterval() {
		logger.Debug("Skipping payment timeout sweep, ran too recently", "last_run", jr.lastSweep)
		return &SweepResult{}, nil
	}
	cancelled, err := jr.bookingRepo.CancelStalePendingPayments(ctx, now, jr.config.Rental.PaymentDeadline(), paymentTimeoutReason)
	if err != nil {
		return nil, err
	}
	jr.lastSweep = now

	result := &SweepResult{CancelledCount: len(cancelled)}
	for _, booking := range cancelled {
		released, err := jr.vehicleRepo.ReleaseIfUnblocked(ctx, booking.VehicleID)
		if err != nil {
			logger.Error("Failed to release vehicle after payment timeout",
				"vehicle_id", booking.VehicleID,
				"booking_reference", booking.Reference,
				"error", err)
			continue
		}
		if released {
			result.ReleasedVehicleCount++
		}

		note := &domain.Notification{
			UserID:  booking.RequesterID,
			Title:   "Booking Cancelled",
			Message: fmt.Sprintf("Booking %s was cancelled: the advance payment deadline passed.", booking.Reference),
			Attributes: map[string]string{
				"type":              "PAYMENT_TIMEOUT",
				"booking_reference": booking.Reference,
			},
		}
		if err := jr.noteRepo.Create(ctx, note); err != nil {
			logger.Error("Failed to create payment timeout notification",
				"user_id", booking.RequesterID,
				"booking_reference", booking.Reference,
				"error", err)
		}
	}
	return result, nil
}

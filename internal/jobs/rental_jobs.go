package jobs

import (
	"context"
	"fmt"

	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/logger"
	"github.com/MrAk1876/carRent-sub002/internal/pricing"
)

// RecomputeOverdue re-derives the rental stage and late accrual of every
// active or overdue booking and persists the ones that moved. The persisted
// write is monotonic, so racing with the read path is safe.
func (jr *JobRunner) RecomputeOverdue() {
	jr.runWithRecovery("RecomputeOverdue", func() {
		ctx := context.Background()
		count, err := jr.RunOverdueRecompute(ctx)
		if err != nil {
			logger.Error("Overdue recompute failed", "error", err)
			return
		}
		logger.Info("Overdue recompute finished", "updated", count)
	})
}

// RunOverdueRecompute performs one recompute pass and returns the number of
// bookings whose assessment changed.
func (jr *JobRunner) RunOverdueRecompute(ctx context.Context) (int, error) {
	bookings, err := jr.bookingRepo.ListByStages(ctx, []domain.RentalStage{
		domain.RentalStageActive,
		domain.RentalStageOverdue,
	})
	if err != nil {
		return 0, err
	}

	now := jr.now().UTC()
	updated := 0
	for i := range bookings {
		booking := &bookings[i]
		assessment := pricing.AssessStage(booking, now)
		if assessment.Stage == booking.RentalStage &&
			assessment.LateHours == booking.LateHours &&
			assessment.LateFee == booking.LateFee {
			continue
		}

		if err := jr.bookingRepo.PersistAssessment(ctx, booking.ID, assessment.Stage, assessment.LateHours, assessment.LateFee); err != nil {
			logger.Error("Failed to persist overdue assessment",
				"booking_id", booking.ID,
				"booking_reference", booking.Reference,
				"error", err)
			continue
		}
		updated++

		// One reminder when the booking first tips into overdue.
		if booking.RentalStage == domain.RentalStageActive && assessment.Stage == domain.RentalStageOverdue {
			note := &domain.Notification{
				UserID: booking.RequesterID,
				Title:  "Rental Overdue",
				Message: fmt.Sprintf("Booking %s is past its return window. Late fees of %.2f/hour are accruing.",
					booking.Reference, booking.HourlyLateRate),
				Attributes: map[string]string{
					"type":              "RENTAL_OVERDUE",
					"booking_reference": booking.Reference,
				},
			}
			if err := jr.noteRepo.Create(ctx, note); err != nil {
				logger.Error("Failed to create overdue notification",
					"user_id", booking.RequesterID,
					"booking_reference", booking.Reference,
					"error", err)
			}
		}
	}
	return updated, nil
}

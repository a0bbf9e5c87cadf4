package pricing

import (
	"math"
	"time"

	"github.com/MrAk1876/carRent-sub002/internal/domain"
)

// HourlyLateRate derives the overdue rate from the per-day price: the
// pro-rated hourly rate plus a 50% premium, rounded to two decimals. It is
// computed once at pickup time and frozen for the trip.
func HourlyLateRate(perDayPrice float64) float64 {
	return Round2(clampAmount(perDayPrice) / 24 * 1.5)
}

// LateHours returns the whole hours elapsed past drop + grace, never
// negative.
func LateHours(drop time.Time, grace time.Duration, now time.Time) int {
	overdueFor := now.Sub(drop.Add(grace))
	if overdueFor <= 0 {
		return 0
	}
	return int(math.Floor(overdueFor.Hours()))
}

// StageAssessment is the derived view of a booking's rental stage at a given
// instant.
type StageAssessment struct {
	Stage     domain.RentalStage
	LateHours int
	LateFee   float64
}

// AssessStage evaluates the effective rental stage and late-fee accrual of a
// stored booking at `now`. Overdue is derived, not stored as a transition, so
// this function is the single recompute path shared by the query side and the
// background sweep. It is idempotent and monotonic: the result never reports
// fewer late hours or a smaller fee than the stored booking, and the stage
// never moves backward.
func AssessStage(b *domain.Booking, now time.Time) StageAssessment {
	out := StageAssessment{
		Stage:     b.RentalStage,
		LateHours: b.LateHours,
		LateFee:   b.LateFee,
	}

	switch b.RentalStage {
	case domain.RentalStageActive, domain.RentalStageOverdue:
	default:
		return out
	}

	hours := LateHours(b.DropAt, b.GracePeriod(), now)
	if hours > out.LateHours {
		out.LateHours = hours
	}
	if out.LateHours > 0 {
		out.Stage = domain.RentalStageOverdue
		fee := Round2(float64(out.LateHours) * b.HourlyLateRate)
		if fee > out.LateFee {
			out.LateFee = fee
		}
	}
	return out
}

package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
)

// ValidateWindow checks a pickup/drop pair against the rental policy.
// Pickup may lie at most `tolerance` in the past; the window must be at least
// minDuration long. Failures come back as Validation errors, never panics.
func ValidateWindow(pickup, drop, now time.Time, tolerance, minDuration time.Duration) error {
	if pickup.Before(now.Add(-tolerance)) {
		return apperr.Validation("pickup time cannot be in the past")
	}
	if !drop.After(pickup) {
		return apperr.Validation("drop time must be after pickup time")
	}
	if drop.Sub(pickup) < minDuration {
		return apperr.Validation(fmt.Sprintf("rental duration must be at least %s", minDuration))
	}
	return nil
}

// BillableDays converts a rental window into billable days. Elapsed minutes
// are rounded up, full 24-hour blocks count as whole days, and the remainder
// bills as a half day under 12 hours or a full day at 12 hours or more.
// The half/full-day slab is business policy, not a rounding artifact.
func BillableDays(pickup, drop time.Time) float64 {
	minutes := math.Ceil(drop.Sub(pickup).Minutes())
	if minutes <= 0 {
		return 0
	}
	hours := minutes / 60
	days := math.Floor(hours / 24)
	remainder := hours - days*24
	switch {
	case remainder == 0:
		// exact day boundary
	case remainder < 12:
		days += 0.5
	default:
		days += 1
	}
	return days
}

// BaseAmount prices a window: billable days times the per-day rate, rounded
// to the nearest currency unit.
func BaseAmount(billableDays, perDayPrice float64) float64 {
	return math.Round(clampAmount(billableDays) * clampAmount(perDayPrice))
}

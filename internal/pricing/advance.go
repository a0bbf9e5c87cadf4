package pricing

import "math"

// Advance rate tiers: cheaper rentals carry a proportionally larger advance.
const (
	advanceTierLow  = 3000.0
	advanceTierHigh = 10000.0
)

// AdvanceBreakdown is the advance/remaining split of a final amount.
type AdvanceBreakdown struct {
	AdvanceRequired float64 `json:"advance_required"`
	RemainingAmount float64 `json:"remaining_amount"`
}

// AdvanceRate returns the graduated advance rate for a final amount:
// 30% below 3000, 25% from 3000 through 10000, 20% above.
func AdvanceRate(finalAmount float64) float64 {
	switch {
	case finalAmount < advanceTierLow:
		return 0.30
	case finalAmount <= advanceTierHigh:
		return 0.25
	default:
		return 0.20
	}
}

// CalculateAdvanceBreakdown splits a final amount into the advance required
// to confirm and the remainder due at completion. Malformed input clamps to
// zero; boundary handlers re-validate amounts before they reach this point.
func CalculateAdvanceBreakdown(finalAmount float64) AdvanceBreakdown {
	finalAmount = clampAmount(finalAmount)
	advance := math.Round(finalAmount * AdvanceRate(finalAmount))
	remaining := Round2(finalAmount - advance)
	if remaining < 0 {
		remaining = 0
	}
	return AdvanceBreakdown{AdvanceRequired: advance, RemainingAmount: remaining}
}

// ResolveFinalAmount picks the single canonical price of an entity: a
// positive finalAmount wins, else totalAmount, else zero. Every settlement
// step reads price through this resolver regardless of which pricing feature
// (bargain, override) last touched the entity.
func ResolveFinalAmount(finalAmount, totalAmount float64) float64 {
	if f := clampAmount(finalAmount); f > 0 {
		return f
	}
	return clampAmount(totalAmount)
}

// Round2 rounds to two decimal places, the precision of all persisted
// amounts.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clampAmount maps NaN, infinities and negatives to zero.
func clampAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

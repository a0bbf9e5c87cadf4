package domain

import "time"

type RentalStage string

const (
	RentalStageScheduled RentalStage = "SCHEDULED"
	RentalStageActive    RentalStage = "ACTIVE"
	RentalStageOverdue   RentalStage = "OVERDUE"
	RentalStageCompleted RentalStage = "COMPLETED"
)

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
)

// Inspection records a pickup handover or return check. Once Locked it is
// immutable.
type Inspection struct {
	Notes          string    `json:"notes"`
	Images         []string  `json:"images,omitempty"`
	DamageDetected bool      `json:"damage_detected"`
	DamageCost     float64   `json:"damage_cost"`
	Locked         bool      `json:"locked"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Booking is a confirmed reservation. Price fields are snapshots captured at
// conversion time; live vehicle prices never affect an existing booking.
// Bookings are never deleted, their terminal states are Cancelled/Completed.
type Booking struct {
	ID               int32         `json:"id"`
	Reference        string        `json:"reference"`
	VehicleID        int32         `json:"vehicle_id"`
	RequesterID      int32         `json:"requester_id"`
	PickupAt         time.Time     `json:"pickup_at"`
	DropAt           time.Time     `json:"drop_at"`
	GracePeriodHours int           `json:"grace_period_hours"`
	RentalStage      RentalStage   `json:"rental_stage"`
	BookingStatus    BookingStatus `json:"booking_status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PerDayPrice      float64       `json:"per_day_price"`
	BillableDays     float64       `json:"billable_days"`
	TotalAmount      float64       `json:"total_amount"`
	FinalAmount      float64       `json:"final_amount"`
	AdvanceRequired  float64       `json:"advance_required"`
	AdvancePaid      float64       `json:"advance_paid"`
	RemainingAmount  float64       `json:"remaining_amount"`
	HourlyLateRate   float64       `json:"hourly_late_rate"`
	LateHours        int           `json:"late_hours"`
	LateFee          float64       `json:"late_fee"`
	Bargain          *Bargain      `json:"bargain,omitempty"`
	PickupInspection *Inspection   `json:"pickup_inspection,omitempty"`
	ReturnInspection *Inspection   `json:"return_inspection,omitempty"`
	CancelReason     string        `json:"cancel_reason,omitempty"`
	// FullPaymentAmount is the settlement figure computed at completion:
	// max(final - advance paid, 0) plus the accrued late fee.
	FullPaymentAmount float64    `json:"full_payment_amount"`
	RefundAmount      float64    `json:"refund_amount"`
	PaymentDeadline   *time.Time `json:"payment_deadline,omitempty"`
	CreatedOn         time.Time  `json:"created_on"`
	UpdatedOn         time.Time  `json:"updated_on"`
}

// GracePeriod returns the configured grace window after the scheduled drop.
func (b *Booking) GracePeriod() time.Duration {
	return time.Duration(b.GracePeriodHours) * time.Hour
}

// Blocking reports whether the booking still ties up its vehicle.
func (b *Booking) Blocking() bool {
	return b.BookingStatus == BookingStatusConfirmed && b.RentalStage != RentalStageCompleted
}

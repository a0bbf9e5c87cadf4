package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "UNPAID"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusFullyPaid     PaymentStatus = "FULLY_PAID"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
)

// Request is a customer's unconfirmed rental intent. It provisionally
// reserves the vehicle; conversion into a booking consumes the row, while
// rejection and cancellation keep it for audit and release the reservation
// unless a booking now holds it.
type Request struct {
	ID               int32     `json:"id"`
	VehicleID        int32     `json:"vehicle_id"`
	RequesterID      int32     `json:"requester_id"`
	PickupAt         time.Time `json:"pickup_at"`
	DropAt           time.Time `json:"drop_at"`
	GracePeriodHours int       `json:"grace_period_hours"`
	// PerDayPrice is the effective rate resolved at submission time and
	// carried into the booking snapshot on approval.
	PerDayPrice     float64       `json:"per_day_price"`
	BillableDays    float64       `json:"billable_days"`
	TotalAmount     float64       `json:"total_amount"`
	FinalAmount     float64       `json:"final_amount"`
	AdvanceRequired float64       `json:"advance_required"`
	AdvancePaid     float64       `json:"advance_paid"`
	RemainingAmount float64       `json:"remaining_amount"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Status          RequestStatus `json:"status"`
	Bargain         *Bargain      `json:"bargain,omitempty"`
	CreatedOn       time.Time     `json:"created_on"`
	UpdatedOn       time.Time     `json:"updated_on"`
}

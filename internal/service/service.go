package service

import (
	"context"
	"time"

	"github.com/MrAk1876/carRent-sub002/internal/domain"
)

// RentalService orchestrates the reservation lifecycle: request submission,
// bargaining, advance payment, pickup, return inspection and settlement.
type RentalService interface {
	CreateRequest(ctx context.Context, input *CreateRequestInput) (*domain.Request, error)
	GetRequest(ctx context.Context, requestID int32) (*domain.Request, error)
	ListRequests(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Request, int32, error)
	CancelRequest(ctx context.Context, requestID, requesterID int32) error
	RejectRequest(ctx context.Context, requestID int32, reason string) (*domain.Request, error)
	ApplyBargainAction(ctx context.Context, input *BargainActionInput) (*domain.Request, error)
	PayAdvanceOrApprove(ctx context.Context, input *ApprovalInput) (*domain.Booking, error)
	ConfirmAdvance(ctx context.Context, bookingID int32, paymentMethod string) (*domain.Booking, error)
	StartPickup(ctx context.Context, input *PickupInput) (*domain.Booking, error)
	SubmitReturnInspection(ctx context.Context, input *ReturnInspectionInput) (*domain.Booking, error)
	CompleteBooking(ctx context.Context, input *CompletionInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID int32) (*domain.Booking, error)
	ListBookings(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error)
}

// FleetService manages the vehicle catalogue and its fleet state machine.
type FleetService interface {
	CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	GetVehicle(ctx context.Context, vehicleID int32) (*domain.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context, status string, page, pageSize int32) ([]domain.Vehicle, int32, error)
	UpdateFleetStatus(ctx context.Context, vehicleID int32, target domain.FleetStatus) (*domain.Vehicle, error)
}

// NotificationService exposes the per-user notification outbox.
type NotificationService interface {
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, notificationID, userID int32) error
}

// EmailSender delivers transactional mail. Implementations must be safe for
// concurrent use.
type EmailSender interface {
	Send(ctx context.Context, to, subject, plainText, htmlContent string) error
}

// CreateRequestInput carries a rental request submission.
type CreateRequestInput struct {
	RequesterID      int32
	VehicleID        int32
	PickupAt         time.Time
	DropAt           time.Time
	GracePeriodHours int
	BargainPrice     float64
	Message          string
}

// BargainActionInput applies one transition of the bargaining machine.
type BargainActionInput struct {
	RequestID    int32
	ActorID      int32
	ActorRole    domain.UserRole
	Action       domain.BargainAction
	CounterPrice float64
}

// ApprovalInput finalizes a pending request into a booking. When
// AdvancePaid is set the booking is confirmed immediately; otherwise it is
// created in PENDING_PAYMENT with a payment deadline.
type ApprovalInput struct {
	RequestID     int32
	AdvancePaid   bool
	PaymentMethod string
	AdminNotes    string
}

// PickupInput records the handover inspection and starts the active rental.
type PickupInput struct {
	BookingID       int32
	InspectionNotes string
	Images          []string
	ActualPickupAt  time.Time
}

// ReturnInspectionInput records the return-side inspection.
type ReturnInspectionInput struct {
	BookingID       int32
	InspectionNotes string
	Images          []string
	DamageDetected  bool
	DamageCost      float64
	DiscountPct     float64
}

// CompletionInput settles and closes a booking.
type CompletionInput struct {
	BookingID     int32
	PaymentMethod string
	ActualDropAt  time.Time
}

package repository

import (
	"context"
	"time"

	"github.com/MrAk1876/carRent-sub002/internal/domain"
)

type VehicleRepository interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	Update(ctx context.Context, v *domain.Vehicle) error
	List(ctx context.Context, status string, page, pageSize int32) ([]domain.Vehicle, int32, error)

	// ReserveIfAvailable performs the atomic Available→Reserved transition.
	// Exactly one of any set of concurrent callers observes true.
	ReserveIfAvailable(ctx context.Context, id int32) (bool, error)
	// MarkRented performs Reserved→Rented at pickup handover.
	MarkRented(ctx context.Context, id int32) (bool, error)
	// UnmarkRented reverts Rented→Reserved when the pickup record cannot be
	// stored after the handover transition already committed.
	UnmarkRented(ctx context.Context, id int32) (bool, error)
	// ReleaseIfUnblocked returns a reserved or rented vehicle to Available,
	// but only when no pending request or confirmed, uncompleted booking
	// still references it.
	ReleaseIfUnblocked(ctx context.Context, id int32) (bool, error)
	// SetStatusIfUnblocked moves a vehicle between manual statuses
	// (maintenance, inactive) as a single conditional write that fails when
	// the stored status no longer matches `from` or a blocking reservation
	// exists.
	SetStatusIfUnblocked(ctx context.Context, id int32, from, to domain.FleetStatus) (bool, error)
	// ResolveDueMaintenance returns to Available every vehicle whose
	// next-service-due date has passed. Returns the affected vehicle IDs.
	ResolveDueMaintenance(ctx context.Context, now time.Time) ([]int32, error)
}

type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id int32) (*domain.Request, error)
	Update(ctx context.Context, req *domain.Request) error
	Delete(ctx context.Context, id int32) error
	ListByRequester(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Request, int32, error)
	// HasPendingForVehicle reports whether the requester already has a
	// pending request on the vehicle.
	HasPendingForVehicle(ctx context.Context, vehicleID, requesterID int32) (bool, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int32) (*domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) error
	ListByRequester(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	ListByStages(ctx context.Context, stages []domain.RentalStage) ([]domain.Booking, error)

	// PersistAssessment stores a derived stage/late-fee recompute. The write
	// is monotonic: late hours and late fee never decrease and the stage
	// never moves backward, so concurrent recomputes converge.
	PersistAssessment(ctx context.Context, id int32, stage domain.RentalStage, lateHours int, lateFee float64) error

	// CancelStalePendingPayments cancels, in one bulk unordered write, every
	// pending-payment booking with no advance captured whose payment deadline
	// (stored, else created_on + fallback) lies before now. Returns the
	// cancelled bookings; each qualifies exactly once.
	CancelStalePendingPayments(ctx context.Context, now time.Time, fallback time.Duration, reason string) ([]domain.Booking, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

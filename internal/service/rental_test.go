package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
	"github.com/MrAk1876/carRent-sub002/internal/config"
	"github.com/MrAk1876/carRent-sub002/internal/domain"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func testRentalConfig() config.RentalConfig {
	return config.RentalConfig{
		MinDurationMinutes:      60,
		PickupToleranceMinutes:  5,
		DefaultGracePeriodHours: 1,
		PaymentDeadlineMinutes:  15,
		SweepMinIntervalSeconds: 60,
	}
}

type rentalMocks struct {
	vehicles *MockVehicleRepo
	requests *MockRequestRepo
	bookings *MockBookingRepo
	users    *MockUserRepo
	notes    *MockNotificationRepo
}

func newTestRentalService() (RentalService, *rentalMocks) {
	m := &rentalMocks{
		vehicles: new(MockVehicleRepo),
		requests: new(MockRequestRepo),
		bookings: new(MockBookingRepo),
		users:    new(MockUserRepo),
		notes:    new(MockNotificationRepo),
	}
	svc := NewRentalService(m.vehicles, m.requests, m.bookings, m.users, m.notes, nil, testRentalConfig(), testClock)
	return svc, m
}

func testVehicle() *domain.Vehicle {
	return &domain.Vehicle{
		ID:          7,
		Name:        "Swift DZire",
		PlateNumber: "KA-01-1234",
		PerDayPrice: 1000,
		FleetStatus: domain.FleetStatusAvailable,
	}
}

func TestCreateRequest(t *testing.T) {
	pickup := testNow.Add(24 * time.Hour)
	drop := pickup.Add(48 * time.Hour)

	t.Run("success computes the billing snapshot", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.vehicles.On("GetByID", mock.Anything, int32(7)).Return(testVehicle(), nil)
		m.requests.On("HasPendingForVehicle", mock.Anything, int32(7), int32(42)).Return(false, nil)
		m.vehicles.On("ReserveIfAvailable", mock.Anything, int32(7)).Return(true, nil)
		m.requests.On("Create", mock.Anything, mock.AnythingOfType("*domain.Request")).Return(nil)
		m.notes.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)

		req, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
			RequesterID: 42,
			VehicleID:   7,
			PickupAt:    pickup,
			DropAt:      drop,
		})
		require.NoError(t, err)

		assert.Equal(t, 2.0, req.BillableDays)
		assert.Equal(t, 2000.0, req.TotalAmount)
		assert.Equal(t, 1000.0, req.PerDayPrice)
		assert.Equal(t, 600.0, req.AdvanceRequired, "30%% tier below 3000")
		assert.Equal(t, 1400.0, req.RemainingAmount)
		assert.Equal(t, 1, req.GracePeriodHours, "default grace applied")
		assert.Equal(t, domain.RequestStatusPending, req.Status)
		assert.Nil(t, req.Bargain)
		m.requests.AssertExpectations(t)
		m.vehicles.AssertExpectations(t)
	})

	t.Run("bargain offer recorded when price given", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.vehicles.On("GetByID", mock.Anything, int32(7)).Return(testVehicle(), nil)
		m.requests.On("HasPendingForVehicle", mock.Anything, int32(7), int32(42)).Return(false, nil)
		m.vehicles.On("ReserveIfAvailable", mock.Anything, int32(7)).Return(true, nil)
		m.requests.On("Create", mock.Anything, mock.Anything).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		req, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
			RequesterID:  42,
			VehicleID:    7,
			PickupAt:     pickup,
			DropAt:       drop,
			BargainPrice: 1700,
		})
		require.NoError(t, err)
		require.NotNil(t, req.Bargain)
		assert.Equal(t, domain.BargainStatusUserOffered, req.Bargain.Status)
		assert.Equal(t, 1700.0, req.Bargain.UserPrice)
	})

	t.Run("vehicle not available", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.vehicles.On("GetByID", mock.Anything, int32(7)).Return(testVehicle(), nil)
		m.requests.On("HasPendingForVehicle", mock.Anything, int32(7), int32(42)).Return(false, nil)
		m.vehicles.On("ReserveIfAvailable", mock.Anything, int32(7)).Return(false, nil)

		_, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
			RequesterID: 42, VehicleID: 7, PickupAt: pickup, DropAt: drop,
		})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeVehicleUnavailable))
		m.requests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate pending request", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.vehicles.On("GetByID", mock.Anything, int32(7)).Return(testVehicle(), nil)
		m.requests.On("HasPendingForVehicle", mock.Anything, int32(7), int32(42)).Return(true, nil)

		_, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
			RequesterID: 42, VehicleID: 7, PickupAt: pickup, DropAt: drop,
		})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeDuplicatePendingRequest))
		m.vehicles.AssertNotCalled(t, "ReserveIfAvailable", mock.Anything, mock.Anything)
	})

	t.Run("window too short", func(t *testing.T) {
		svc, _ := newTestRentalService()
		_, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
			RequesterID: 42, VehicleID: 7,
			PickupAt: pickup, DropAt: pickup.Add(30 * time.Minute),
		})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
	})

	t.Run("failed insert releases the reservation", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.vehicles.On("GetByID", mock.Anything, int32(7)).Return(testVehicle(), nil)
		m.requests.On("HasPendingForVehicle", mock.Anything, int32(7), int32(42)).Return(false, nil)
		m.vehicles.On("ReserveIfAvailable", mock.Anything, int32(7)).Return(true, nil)
		m.requests.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
		m.vehicles.On("ReleaseIfUnblocked", mock.Anything, int32(7)).Return(true, nil)

		_, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
			RequesterID: 42, VehicleID: 7, PickupAt: pickup, DropAt: drop,
		})
		require.Error(t, err)
		m.vehicles.AssertCalled(t, "ReleaseIfUnblocked", mock.Anything, int32(7))
	})
}

// casVehicleRepo is an in-memory vehicle store whose conditional writes
// behave like the SQL ones: one winner under concurrency.
type casVehicleRepo struct {
	mu      sync.Mutex
	vehicle domain.Vehicle
}

func (r *casVehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error { return nil }
func (r *casVehicleRepo) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vehicle
	return &v, nil
}
func (r *casVehicleRepo) Update(ctx context.Context, v *domain.Vehicle) error { return nil }
func (r *casVehicleRepo) List(ctx context.Context, status string, page, pageSize int32) ([]domain.Vehicle, int32, error) {
	return nil, 0, nil
}
func (r *casVehicleRepo) ReserveIfAvailable(ctx context.Context, id int32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vehicle.FleetStatus != domain.FleetStatusAvailable {
		return false, nil
	}
	r.vehicle.FleetStatus = domain.FleetStatusReserved
	return true, nil
}
func (r *casVehicleRepo) MarkRented(ctx context.Context, id int32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vehicle.FleetStatus != domain.FleetStatusReserved {
		return false, nil
	}
	r.vehicle.FleetStatus = domain.FleetStatusRented
	return true, nil
}
func (r *casVehicleRepo) UnmarkRented(ctx context.Context, id int32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vehicle.FleetStatus != domain.FleetStatusRented {
		return false, nil
	}
	r.vehicle.FleetStatus = domain.FleetStatusReserved
	return true, nil
}
func (r *casVehicleRepo) ReleaseIfUnblocked(ctx context.Context, id int32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicle.FleetStatus = domain.FleetStatusAvailable
	return true, nil
}
func (r *casVehicleRepo) SetStatusIfUnblocked(ctx context.Context, id int32, from, to domain.FleetStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vehicle.FleetStatus != from {
		return false, nil
	}
	r.vehicle.FleetStatus = to
	return true, nil
}
func (r *casVehicleRepo) ResolveDueMaintenance(ctx context.Context, now time.Time) ([]int32, error) {
	return nil, nil
}

func TestCreateRequestConcurrentSingleWinner(t *testing.T) {
	vehicles := &casVehicleRepo{vehicle: *testVehicle()}
	requests := new(MockRequestRepo)
	notes := new(MockNotificationRepo)
	requests.On("HasPendingForVehicle", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	requests.On("Create", mock.Anything, mock.Anything).Return(nil)
	notes.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewRentalService(vehicles, requests, new(MockBookingRepo), new(MockUserRepo), notes, nil, testRentalConfig(), testClock)

	const workers = 16
	pickup := testNow.Add(24 * time.Hour)
	drop := pickup.Add(24 * time.Hour)

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(requester int32) {
			defer wg.Done()
			_, err := svc.CreateRequest(context.Background(), &CreateRequestInput{
				RequesterID: requester,
				VehicleID:   7,
				PickupAt:    pickup,
				DropAt:      drop,
			})
			results <- err
		}(int32(i + 1))
	}
	wg.Wait()
	close(results)

	winners, losers := 0, 0
	for err := range results {
		if err == nil {
			winners++
			continue
		}
		require.True(t, apperr.IsCode(err, apperr.CodeVehicleUnavailable), "unexpected error: %v", err)
		losers++
	}
	assert.Equal(t, 1, winners, "exactly one concurrent request wins the reservation")
	assert.Equal(t, workers-1, losers)
}

func pendingRequest() *domain.Request {
	return &domain.Request{
		ID:               11,
		VehicleID:        7,
		RequesterID:      42,
		PickupAt:         testNow.Add(24 * time.Hour),
		DropAt:           testNow.Add(72 * time.Hour),
		GracePeriodHours: 1,
		PerDayPrice:      1000,
		BillableDays:     2,
		TotalAmount:      2000,
		AdvanceRequired:  600,
		RemainingAmount:  1400,
		PaymentStatus:    domain.PaymentStatusUnpaid,
		Status:           domain.RequestStatusPending,
	}
}

func TestPayAdvanceOrApprove(t *testing.T) {
	t.Run("with payment captured confirms immediately", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.requests.On("GetByID", mock.Anything, int32(11)).Return(pendingRequest(), nil)
		m.bookings.On("Create", mock.Anything, mock.AnythingOfType("*domain.Booking")).Return(nil)
		m.requests.On("Delete", mock.Anything, int32(11)).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		booking, err := svc.PayAdvanceOrApprove(context.Background(), &ApprovalInput{
			RequestID: 11, AdvancePaid: true, PaymentMethod: "card",
		})
		require.NoError(t, err)

		assert.Equal(t, domain.BookingStatusConfirmed, booking.BookingStatus)
		assert.Equal(t, domain.PaymentStatusPartiallyPaid, booking.PaymentStatus)
		assert.Equal(t, domain.RentalStageScheduled, booking.RentalStage)
		assert.Equal(t, 600.0, booking.AdvancePaid)
		assert.Equal(t, 1400.0, booking.RemainingAmount)
		assert.NotEmpty(t, booking.Reference)
		assert.Nil(t, booking.PaymentDeadline)
		m.requests.AssertCalled(t, "Delete", mock.Anything, int32(11))
	})

	t.Run("without payment books with a deadline", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.requests.On("GetByID", mock.Anything, int32(11)).Return(pendingRequest(), nil)
		m.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)
		m.requests.On("Delete", mock.Anything, int32(11)).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		booking, err := svc.PayAdvanceOrApprove(context.Background(), &ApprovalInput{RequestID: 11})
		require.NoError(t, err)

		assert.Equal(t, domain.BookingStatusPendingPayment, booking.BookingStatus)
		assert.Equal(t, domain.PaymentStatusUnpaid, booking.PaymentStatus)
		assert.Equal(t, 0.0, booking.AdvancePaid)
		require.NotNil(t, booking.PaymentDeadline)
		assert.Equal(t, testNow.Add(15*time.Minute), *booking.PaymentDeadline)
	})

	t.Run("accepted bargain drives the advance split", func(t *testing.T) {
		req := pendingRequest()
		req.FinalAmount = 4200
		req.AdvanceRequired = 1050
		req.RemainingAmount = 3150
		req.Bargain = &domain.Bargain{UserPrice: 4200, Status: domain.BargainStatusAccepted}

		svc, m := newTestRentalService()
		m.requests.On("GetByID", mock.Anything, int32(11)).Return(req, nil)
		m.bookings.On("Create", mock.Anything, mock.Anything).Return(nil)
		m.requests.On("Delete", mock.Anything, int32(11)).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		booking, err := svc.PayAdvanceOrApprove(context.Background(), &ApprovalInput{RequestID: 11, AdvancePaid: true})
		require.NoError(t, err)

		assert.Equal(t, 4200.0, booking.FinalAmount)
		assert.Equal(t, 1050.0, booking.AdvancePaid, "25%% tier between 3000 and 10000")
		assert.Equal(t, 3150.0, booking.RemainingAmount)
		require.NotNil(t, booking.Bargain)
		assert.Equal(t, domain.BargainStatusLocked, booking.Bargain.Status)
	})

	t.Run("non-pending request rejected", func(t *testing.T) {
		req := pendingRequest()
		req.Status = domain.RequestStatusRejected

		svc, m := newTestRentalService()
		m.requests.On("GetByID", mock.Anything, int32(11)).Return(req, nil)

		_, err := svc.PayAdvanceOrApprove(context.Background(), &ApprovalInput{RequestID: 11})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeWrongState))
	})
}

func confirmedBooking() *domain.Booking {
	return &domain.Booking{
		ID:               3,
		Reference:        "BK-TEST000001",
		VehicleID:        7,
		RequesterID:      42,
		PickupAt:         testNow.Add(-48 * time.Hour),
		DropAt:           testNow.Add(24 * time.Hour),
		GracePeriodHours: 1,
		RentalStage:      domain.RentalStageScheduled,
		BookingStatus:    domain.BookingStatusConfirmed,
		PaymentStatus:    domain.PaymentStatusPartiallyPaid,
		PerDayPrice:      1000,
		BillableDays:     2,
		TotalAmount:      2000,
		AdvanceRequired:  600,
		AdvancePaid:      600,
		RemainingAmount:  1400,
	}
}

func TestConfirmAdvance(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		deadline := testNow.Add(10 * time.Minute)
		b := confirmedBooking()
		b.BookingStatus = domain.BookingStatusPendingPayment
		b.PaymentStatus = domain.PaymentStatusUnpaid
		b.AdvancePaid = 0
		b.PaymentDeadline = &deadline

		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(b, nil)
		m.bookings.On("Update", mock.Anything, mock.Anything).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		got, err := svc.ConfirmAdvance(context.Background(), 3, "upi")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, got.BookingStatus)
		assert.Equal(t, domain.PaymentStatusPartiallyPaid, got.PaymentStatus)
		assert.Equal(t, 600.0, got.AdvancePaid)
		assert.Nil(t, got.PaymentDeadline)
	})

	t.Run("deadline passed", func(t *testing.T) {
		deadline := testNow.Add(-time.Minute)
		b := confirmedBooking()
		b.BookingStatus = domain.BookingStatusPendingPayment
		b.PaymentDeadline = &deadline

		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(b, nil)

		_, err := svc.ConfirmAdvance(context.Background(), 3, "upi")
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeWrongState))
	})

	t.Run("already confirmed", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(confirmedBooking(), nil)

		_, err := svc.ConfirmAdvance(context.Background(), 3, "upi")
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeWrongState))
	})
}

func TestStartPickup(t *testing.T) {
	t.Run("freezes the hourly late rate", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(confirmedBooking(), nil)
		m.vehicles.On("MarkRented", mock.Anything, int32(7)).Return(true, nil)
		m.bookings.On("Update", mock.Anything, mock.Anything).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		got, err := svc.StartPickup(context.Background(), &PickupInput{BookingID: 3, InspectionNotes: "clean, full tank"})
		require.NoError(t, err)

		assert.Equal(t, domain.RentalStageActive, got.RentalStage)
		assert.Equal(t, 62.5, got.HourlyLateRate)
		require.NotNil(t, got.PickupInspection)
		assert.True(t, got.PickupInspection.Locked)
	})

	t.Run("failed booking write hands the vehicle back for retry", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(confirmedBooking(), nil).Once()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(confirmedBooking(), nil).Once()
		m.vehicles.On("MarkRented", mock.Anything, int32(7)).Return(true, nil)
		m.bookings.On("Update", mock.Anything, mock.Anything).Return(errors.New("write failed")).Once()
		m.vehicles.On("UnmarkRented", mock.Anything, int32(7)).Return(true, nil).Once()
		m.bookings.On("Update", mock.Anything, mock.Anything).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.StartPickup(context.Background(), &PickupInput{BookingID: 3})
		require.Error(t, err)
		assert.False(t, apperr.IsCode(err, apperr.CodeFleetStateConflict), "transient write failure is not a fleet conflict")
		m.vehicles.AssertCalled(t, "UnmarkRented", mock.Anything, int32(7))

		got, err := svc.StartPickup(context.Background(), &PickupInput{BookingID: 3})
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStageActive, got.RentalStage)
	})

	t.Run("fleet conflict leaves the booking untouched", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(confirmedBooking(), nil)
		m.vehicles.On("MarkRented", mock.Anything, int32(7)).Return(false, nil)

		_, err := svc.StartPickup(context.Background(), &PickupInput{BookingID: 3})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeFleetStateConflict))
		m.bookings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("second pickup rejected", func(t *testing.T) {
		b := confirmedBooking()
		b.RentalStage = domain.RentalStageActive
		b.PickupInspection = &domain.Inspection{Locked: true}

		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(b, nil)

		_, err := svc.StartPickup(context.Background(), &PickupInput{BookingID: 3})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeWrongState))
	})
}

func activeRental() *domain.Booking {
	b := confirmedBooking()
	b.RentalStage = domain.RentalStageActive
	b.HourlyLateRate = 62.5
	b.PickupInspection = &domain.Inspection{Locked: true}
	return b
}

func TestSubmitReturnInspection(t *testing.T) {
	t.Run("damage cost folds into remaining with discount", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(activeRental(), nil)
		m.bookings.On("Update", mock.Anything, mock.Anything).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		got, err := svc.SubmitReturnInspection(context.Background(), &ReturnInspectionInput{
			BookingID:      3,
			DamageDetected: true,
			DamageCost:     1000,
			DiscountPct:    20,
		})
		require.NoError(t, err)

		require.NotNil(t, got.ReturnInspection)
		assert.True(t, got.ReturnInspection.Locked)
		assert.Equal(t, 800.0, got.ReturnInspection.DamageCost)
		assert.Equal(t, 2200.0, got.RemainingAmount, "1400 + discounted damage 800")
	})

	t.Run("locked inspection is immutable", func(t *testing.T) {
		b := activeRental()
		b.ReturnInspection = &domain.Inspection{Locked: true}

		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(b, nil)

		_, err := svc.SubmitReturnInspection(context.Background(), &ReturnInspectionInput{BookingID: 3})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyLocked))
	})

	t.Run("scheduled booking has nothing to inspect", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(confirmedBooking(), nil)

		_, err := svc.SubmitReturnInspection(context.Background(), &ReturnInspectionInput{BookingID: 3})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeWrongState))
	})
}

func TestCompleteBooking(t *testing.T) {
	t.Run("settlement includes accrued late fee", func(t *testing.T) {
		b := activeRental()
		b.DropAt = testNow.Add(-4 * time.Hour)
		b.ReturnInspection = &domain.Inspection{Locked: true}

		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(b, nil)
		m.bookings.On("Update", mock.Anything, mock.Anything).Return(nil)
		m.vehicles.On("ReleaseIfUnblocked", mock.Anything, int32(7)).Return(true, nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		got, err := svc.CompleteBooking(context.Background(), &CompletionInput{BookingID: 3, PaymentMethod: "card"})
		require.NoError(t, err)

		// 3 whole hours past drop+grace at 62.5/hour.
		assert.Equal(t, 3, got.LateHours)
		assert.Equal(t, 187.5, got.LateFee)
		assert.Equal(t, 1587.5, got.FullPaymentAmount, "remaining 1400 + late fee 187.5")
		assert.Equal(t, 0.0, got.RemainingAmount)
		assert.Equal(t, domain.RentalStageCompleted, got.RentalStage)
		assert.Equal(t, domain.BookingStatusCompleted, got.BookingStatus)
		assert.Equal(t, domain.PaymentStatusFullyPaid, got.PaymentStatus)
		m.vehicles.AssertCalled(t, "ReleaseIfUnblocked", mock.Anything, int32(7))
	})

	t.Run("missing return inspection blocks settlement", func(t *testing.T) {
		svc, m := newTestRentalService()
		m.bookings.On("GetByID", mock.Anything, int32(3)).Return(activeRental(), nil)

		_, err := svc.CompleteBooking(context.Background(), &CompletionInput{BookingID: 3, PaymentMethod: "card"})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeReturnInspectionMissing))
		m.bookings.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestApplyBargainAction(t *testing.T) {
	t.Run("customer accepting a counter sets the final amount", func(t *testing.T) {
		req := pendingRequest()
		req.Bargain = &domain.Bargain{UserPrice: 1500, AdminCounterPrice: 1800, Status: domain.BargainStatusAdminCountered}

		svc, m := newTestRentalService()
		m.requests.On("GetByID", mock.Anything, int32(11)).Return(req, nil)
		m.requests.On("Update", mock.Anything, mock.Anything).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		got, err := svc.ApplyBargainAction(context.Background(), &BargainActionInput{
			RequestID: 11, ActorID: 42, ActorRole: domain.UserRoleCustomer,
			Action: domain.BargainActionAccept,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.BargainStatusAccepted, got.Bargain.Status)
		assert.Equal(t, 1800.0, got.FinalAmount, "counter price wins when customer accepts")
		assert.Equal(t, 540.0, got.AdvanceRequired, "30%% of 1800")
		assert.Equal(t, 1260.0, got.RemainingAmount)
	})

	t.Run("admin accepting a user offer takes the offer price", func(t *testing.T) {
		req := pendingRequest()
		req.Bargain = &domain.Bargain{UserPrice: 1500, Status: domain.BargainStatusUserOffered}

		svc, m := newTestRentalService()
		m.requests.On("GetByID", mock.Anything, int32(11)).Return(req, nil)
		m.requests.On("Update", mock.Anything, mock.Anything).Return(nil)
		m.notes.On("Create", mock.Anything, mock.Anything).Return(nil)

		got, err := svc.ApplyBargainAction(context.Background(), &BargainActionInput{
			RequestID: 11, ActorID: 1, ActorRole: domain.UserRoleAdmin,
			Action: domain.BargainActionAccept,
		})
		require.NoError(t, err)
		assert.Equal(t, 1500.0, got.FinalAmount)
	})

	t.Run("customer cannot counter", func(t *testing.T) {
		req := pendingRequest()
		req.Bargain = &domain.Bargain{UserPrice: 1500, Status: domain.BargainStatusUserOffered}

		svc, m := newTestRentalService()
		m.requests.On("GetByID", mock.Anything, int32(11)).Return(req, nil)

		_, err := svc.ApplyBargainAction(context.Background(), &BargainActionInput{
			RequestID: 11, ActorID: 42, ActorRole: domain.UserRoleCustomer,
			Action: domain.BargainActionCounter, CounterPrice: 1900,
		})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))
	})
}

func TestCancelRequestOwnership(t *testing.T) {
	svc, m := newTestRentalService()
	m.requests.On("GetByID", mock.Anything, int32(11)).Return(pendingRequest(), nil)

	err := svc.CancelRequest(context.Background(), 11, 99)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))
}

func TestGetBookingRecomputesStage(t *testing.T) {
	b := activeRental()
	b.DropAt = testNow.Add(-4 * time.Hour)

	svc, m := newTestRentalService()
	m.bookings.On("GetByID", mock.Anything, int32(3)).Return(b, nil)
	m.bookings.On("PersistAssessment", mock.Anything, int32(3), domain.RentalStageOverdue, 3, 187.5).Return(nil)

	got, err := svc.GetBooking(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, domain.RentalStageOverdue, got.RentalStage)
	assert.Equal(t, 3, got.LateHours)
	assert.Equal(t, 187.5, got.LateFee)
	m.bookings.AssertExpectations(t)
}

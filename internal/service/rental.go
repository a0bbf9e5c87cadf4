package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
	"github.com/MrAk1876/carRent-sub002/internal/config"
	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/logger"
	"github.com/MrAk1876/carRent-sub002/internal/pricing"
	"github.com/MrAk1876/carRent-sub002/internal/repository"
)

type rentalService struct {
	vehicleRepo repository.VehicleRepository
	requestRepo repository.RequestRepository
	bookingRepo repository.BookingRepository
	userRepo    repository.UserRepository
	noteRepo    repository.NotificationRepository
	email       EmailSender
	cfg         config.RentalConfig
	now         func() time.Time
}

// NewRentalService wires the reservation orchestrator. Pass a nil clock to
// use wall time.
func NewRentalService(
	vehicleRepo repository.VehicleRepository,
	requestRepo repository.RequestRepository,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	noteRepo repository.NotificationRepository,
	email EmailSender,
	cfg config.RentalConfig,
	clock func() time.Time,
) RentalService {
	if clock == nil {
		clock = time.Now
	}
	return &rentalService{
		vehicleRepo: vehicleRepo,
		requestRepo: requestRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		noteRepo:    noteRepo,
		email:       email,
		cfg:         cfg,
		now:         clock,
	}
}

func (s *rentalService) CreateRequest(ctx context.Context, input *CreateRequestInput) (*domain.Request, error) {
	now := s.now().UTC()
	if err := pricing.ValidateWindow(input.PickupAt, input.DropAt, now, s.cfg.PickupTolerance(), s.cfg.MinDuration()); err != nil {
		return nil, err
	}

	grace := input.GracePeriodHours
	if grace <= 0 {
		grace = s.cfg.DefaultGracePeriodHours
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}

	pending, err := s.requestRepo.HasPendingForVehicle(ctx, input.VehicleID, input.RequesterID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperr.DuplicatePendingRequest(input.VehicleID)
	}

	// The conditional write is the arbiter under concurrency; the status
	// read above is only for price resolution.
	reserved, err := s.vehicleRepo.ReserveIfAvailable(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, apperr.VehicleUnavailable(input.VehicleID)
	}

	perDay := vehicle.EffectivePerDayPrice()
	days := pricing.BillableDays(input.PickupAt, input.DropAt)
	total := pricing.BaseAmount(days, perDay)
	breakdown := pricing.CalculateAdvanceBreakdown(total)

	req := &domain.Request{
		VehicleID:        input.VehicleID,
		RequesterID:      input.RequesterID,
		PickupAt:         input.PickupAt.UTC(),
		DropAt:           input.DropAt.UTC(),
		GracePeriodHours: grace,
		PerDayPrice:      perDay,
		BillableDays:     days,
		TotalAmount:      total,
		AdvanceRequired:  breakdown.AdvanceRequired,
		RemainingAmount:  breakdown.RemainingAmount,
		PaymentStatus:    domain.PaymentStatusUnpaid,
		Status:           domain.RequestStatusPending,
	}

	if input.BargainPrice > 0 {
		bargain := &domain.Bargain{Status: domain.BargainStatusNone}
		if err := bargain.Offer(input.BargainPrice); err != nil {
			s.releaseVehicle(ctx, input.VehicleID)
			return nil, err
		}
		req.Bargain = bargain
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		// Compensate the reservation so a failed insert cannot strand the
		// vehicle in Reserved.
		s.releaseVehicle(ctx, input.VehicleID)
		return nil, err
	}

	s.notify(ctx, input.RequesterID, "Rental Request Submitted",
		fmt.Sprintf("Your request for %s is pending review. Estimated total: %.2f", vehicle.Name, total),
		map[string]string{"type": "REQUEST_SUBMITTED", "request_id": fmt.Sprintf("%d", req.ID)})

	return req, nil
}

func (s *rentalService) GetRequest(ctx context.Context, requestID int32) (*domain.Request, error) {
	return s.requestRepo.GetByID(ctx, requestID)
}

func (s *rentalService) ListRequests(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Request, int32, error) {
	return s.requestRepo.ListByRequester(ctx, requesterID, status, page, pageSize)
}

func (s *rentalService) CancelRequest(ctx context.Context, requestID, requesterID int32) error {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.RequesterID != requesterID {
		return apperr.Forbidden("request belongs to another user")
	}
	if req.Status != domain.RequestStatusPending {
		return apperr.WrongState("only pending requests can be cancelled")
	}

	req.Status = domain.RequestStatusCancelled
	if err := s.requestRepo.Update(ctx, req); err != nil {
		return err
	}
	s.releaseVehicle(ctx, req.VehicleID)

	s.notify(ctx, req.RequesterID, "Request Cancelled",
		"Your rental request was cancelled.",
		map[string]string{"type": "REQUEST_CANCELLED", "request_id": fmt.Sprintf("%d", req.ID)})
	return nil
}

func (s *rentalService) RejectRequest(ctx context.Context, requestID int32, reason string) (*domain.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestStatusPending {
		return nil, apperr.WrongState("only pending requests can be rejected")
	}

	req.Status = domain.RequestStatusRejected
	if err := s.requestRepo.Update(ctx, req); err != nil {
		return nil, err
	}
	s.releaseVehicle(ctx, req.VehicleID)

	msg := "Your rental request was declined."
	if reason != "" {
		msg = fmt.Sprintf("Your rental request was declined: %s", reason)
	}
	s.notify(ctx, req.RequesterID, "Request Declined", msg,
		map[string]string{"type": "REQUEST_REJECTED", "request_id": fmt.Sprintf("%d", req.ID)})
	return req, nil
}

func (s *rentalService) ApplyBargainAction(ctx context.Context, input *BargainActionInput) (*domain.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestStatusPending {
		return nil, apperr.WrongState("bargaining is only open on pending requests")
	}
	if input.ActorRole != domain.UserRoleAdmin && req.RequesterID != input.ActorID {
		return nil, apperr.Forbidden("request belongs to another user")
	}

	if req.Bargain == nil {
		req.Bargain = &domain.Bargain{Status: domain.BargainStatusNone}
	}
	bargain := req.Bargain
	prev := bargain.Status

	switch input.Action {
	case domain.BargainActionOffer:
		if input.ActorRole == domain.UserRoleAdmin {
			return nil, apperr.Forbidden("only the requester can make an offer")
		}
		err = bargain.Offer(input.CounterPrice)
	case domain.BargainActionCounter:
		if input.ActorRole != domain.UserRoleAdmin {
			return nil, apperr.Forbidden("only an admin can counter an offer")
		}
		err = bargain.Counter(input.CounterPrice)
	case domain.BargainActionAccept:
		// Accepting closes the negotiation at the other party's last price.
		if input.ActorRole == domain.UserRoleAdmin && prev != domain.BargainStatusUserOffered {
			return nil, apperr.InvalidBargainAction("no user offer to accept")
		}
		if input.ActorRole != domain.UserRoleAdmin && prev != domain.BargainStatusAdminCountered {
			return nil, apperr.InvalidBargainAction("no counter-offer to accept")
		}
		err = bargain.Accept()
	case domain.BargainActionReject:
		err = bargain.Reject()
	default:
		return nil, apperr.InvalidBargainAction(fmt.Sprintf("unknown bargain action %q", input.Action))
	}
	if err != nil {
		return nil, err
	}

	if bargain.Status == domain.BargainStatusAccepted {
		agreed := bargain.UserPrice
		if prev == domain.BargainStatusAdminCountered {
			agreed = bargain.AdminCounterPrice
		}
		req.FinalAmount = pricing.Round2(agreed)
		breakdown := pricing.CalculateAdvanceBreakdown(req.FinalAmount)
		req.AdvanceRequired = breakdown.AdvanceRequired
		req.RemainingAmount = breakdown.RemainingAmount
	}

	if err := s.requestRepo.Update(ctx, req); err != nil {
		return nil, err
	}

	s.notify(ctx, req.RequesterID, "Bargain Updated",
		fmt.Sprintf("Negotiation on request %d is now %s.", req.ID, bargain.Status),
		map[string]string{"type": "BARGAIN_" + strings.ToUpper(string(input.Action)), "request_id": fmt.Sprintf("%d", req.ID)})
	return req, nil
}

func (s *rentalService) PayAdvanceOrApprove(ctx context.Context, input *ApprovalInput) (*domain.Booking, error) {
	req, err := s.requestRepo.GetByID(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestStatusPending {
		return nil, apperr.WrongState("only pending requests can be approved")
	}

	now := s.now().UTC()
	final := pricing.ResolveFinalAmount(req.FinalAmount, req.TotalAmount)
	breakdown := pricing.CalculateAdvanceBreakdown(final)

	booking := &domain.Booking{
		Reference:        newBookingReference(),
		VehicleID:        req.VehicleID,
		RequesterID:      req.RequesterID,
		PickupAt:         req.PickupAt,
		DropAt:           req.DropAt,
		GracePeriodHours: req.GracePeriodHours,
		RentalStage:      domain.RentalStageScheduled,
		PerDayPrice:      req.PerDayPrice,
		BillableDays:     req.BillableDays,
		TotalAmount:      req.TotalAmount,
		FinalAmount:      req.FinalAmount,
		AdvanceRequired:  breakdown.AdvanceRequired,
		RemainingAmount:  breakdown.RemainingAmount,
	}

	if req.Bargain != nil {
		// The negotiation snapshot freezes with the booking; the lock fails
		// harmlessly for never-opened or rejected bargains.
		frozen := *req.Bargain
		_ = frozen.Lock()
		booking.Bargain = &frozen
	}

	if input.AdvancePaid {
		booking.BookingStatus = domain.BookingStatusConfirmed
		booking.PaymentStatus = domain.PaymentStatusPartiallyPaid
		booking.AdvancePaid = breakdown.AdvanceRequired
	} else {
		deadline := now.Add(s.cfg.PaymentDeadline())
		booking.BookingStatus = domain.BookingStatusPendingPayment
		booking.PaymentStatus = domain.PaymentStatusUnpaid
		booking.PaymentDeadline = &deadline
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}
	// The request is consumed by the conversion. The vehicle stays Reserved:
	// either the confirmed booking blocks it, or the payment-timeout sweep
	// releases it when the deadline lapses unpaid.
	if err := s.requestRepo.Delete(ctx, req.ID); err != nil {
		logger.Error("failed to delete converted request", "request_id", req.ID, "error", err)
	}

	if input.AdvancePaid {
		s.notify(ctx, booking.RequesterID, "Booking Confirmed",
			fmt.Sprintf("Booking %s is confirmed. Advance of %.2f received; %.2f due at completion.",
				booking.Reference, booking.AdvancePaid, booking.RemainingAmount),
			map[string]string{"type": "BOOKING_CONFIRMED", "booking_reference": booking.Reference})
	} else {
		s.notify(ctx, booking.RequesterID, "Advance Payment Required",
			fmt.Sprintf("Booking %s is approved. Pay the advance of %.2f by %s to confirm.",
				booking.Reference, booking.AdvanceRequired, booking.PaymentDeadline.Format(time.RFC3339)),
			map[string]string{"type": "ADVANCE_DUE", "booking_reference": booking.Reference})
	}
	return booking, nil
}

func (s *rentalService) ConfirmAdvance(ctx context.Context, bookingID int32, paymentMethod string) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookingStatus != domain.BookingStatusPendingPayment {
		return nil, apperr.WrongState("booking is not awaiting an advance payment")
	}
	now := s.now().UTC()
	if booking.PaymentDeadline != nil && now.After(*booking.PaymentDeadline) {
		return nil, apperr.WrongState("payment deadline has passed")
	}

	booking.BookingStatus = domain.BookingStatusConfirmed
	booking.PaymentStatus = domain.PaymentStatusPartiallyPaid
	booking.AdvancePaid = booking.AdvanceRequired
	booking.PaymentDeadline = nil

	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.notify(ctx, booking.RequesterID, "Booking Confirmed",
		fmt.Sprintf("Booking %s is confirmed. Advance of %.2f received via %s.",
			booking.Reference, booking.AdvancePaid, paymentMethod),
		map[string]string{"type": "BOOKING_CONFIRMED", "booking_reference": booking.Reference})
	return booking, nil
}

func (s *rentalService) StartPickup(ctx context.Context, input *PickupInput) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookingStatus != domain.BookingStatusConfirmed {
		return nil, apperr.WrongState("only confirmed bookings can start pickup")
	}
	if booking.RentalStage != domain.RentalStageScheduled {
		return nil, apperr.WrongState("rental has already started")
	}
	if booking.PickupInspection != nil {
		return nil, apperr.AlreadyInspected()
	}

	// The fleet transition goes first: if another actor moved the vehicle
	// the booking is left untouched.
	rented, err := s.vehicleRepo.MarkRented(ctx, booking.VehicleID)
	if err != nil {
		return nil, err
	}
	if !rented {
		return nil, apperr.FleetStateConflict("vehicle is not reserved for handover")
	}

	recordedAt := input.ActualPickupAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}
	booking.PickupInspection = &domain.Inspection{
		Notes:      input.InspectionNotes,
		Images:     input.Images,
		Locked:     true,
		RecordedAt: recordedAt.UTC(),
	}
	booking.RentalStage = domain.RentalStageActive
	booking.HourlyLateRate = pricing.HourlyLateRate(booking.PerDayPrice)

	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		// The handover already committed. Hand the vehicle back to RESERVED
		// so a retry of the pickup can win it again.
		if _, revErr := s.vehicleRepo.UnmarkRented(ctx, booking.VehicleID); revErr != nil {
			logger.Error("failed to revert vehicle after pickup write failure",
				"vehicle_id", booking.VehicleID,
				"booking_reference", booking.Reference,
				"error", revErr)
		}
		return nil, err
	}

	s.notify(ctx, booking.RequesterID, "Rental Started",
		fmt.Sprintf("Pickup recorded for booking %s. Return is due by %s.",
			booking.Reference, booking.DropAt.Format(time.RFC3339)),
		map[string]string{"type": "RENTAL_STARTED", "booking_reference": booking.Reference})
	return booking, nil
}

func (s *rentalService) SubmitReturnInspection(ctx context.Context, input *ReturnInspectionInput) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	switch booking.RentalStage {
	case domain.RentalStageActive, domain.RentalStageOverdue:
	default:
		return nil, apperr.WrongState("booking is not in an active rental")
	}
	if booking.ReturnInspection != nil && booking.ReturnInspection.Locked {
		return nil, apperr.AlreadyLocked()
	}

	damageCost := 0.0
	if input.DamageDetected {
		damageCost = input.DamageCost
		if input.DiscountPct > 0 && input.DiscountPct <= 100 {
			damageCost = damageCost * (1 - input.DiscountPct/100)
		}
		damageCost = pricing.Round2(damageCost)
	}

	booking.ReturnInspection = &domain.Inspection{
		Notes:          input.InspectionNotes,
		Images:         input.Images,
		DamageDetected: input.DamageDetected,
		DamageCost:     damageCost,
		Locked:         true,
		RecordedAt:     s.now().UTC(),
	}
	if damageCost > 0 {
		booking.RemainingAmount = pricing.Round2(booking.RemainingAmount + damageCost)
	}

	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.notify(ctx, booking.RequesterID, "Return Inspection Recorded",
		fmt.Sprintf("Return inspection recorded for booking %s.", booking.Reference),
		map[string]string{"type": "RETURN_INSPECTED", "booking_reference": booking.Reference})
	return booking, nil
}

func (s *rentalService) CompleteBooking(ctx context.Context, input *CompletionInput) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	switch booking.RentalStage {
	case domain.RentalStageActive, domain.RentalStageOverdue:
	default:
		return nil, apperr.WrongState("booking is not in an active rental")
	}
	if booking.ReturnInspection == nil || !booking.ReturnInspection.Locked {
		return nil, apperr.ReturnInspectionMissing()
	}

	settledAt := input.ActualDropAt
	if settledAt.IsZero() {
		settledAt = s.now()
	}
	assessment := pricing.AssessStage(booking, settledAt.UTC())
	booking.LateHours = assessment.LateHours
	booking.LateFee = assessment.LateFee

	booking.FullPaymentAmount = pricing.Round2(booking.RemainingAmount + booking.LateFee)
	booking.RemainingAmount = 0
	booking.PaymentStatus = domain.PaymentStatusFullyPaid
	booking.RentalStage = domain.RentalStageCompleted
	booking.BookingStatus = domain.BookingStatusCompleted

	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}
	s.releaseVehicle(ctx, booking.VehicleID)

	s.notify(ctx, booking.RequesterID, "Rental Completed",
		fmt.Sprintf("Booking %s is settled. Final payment of %.2f received via %s.",
			booking.Reference, booking.FullPaymentAmount, input.PaymentMethod),
		map[string]string{"type": "RENTAL_COMPLETED", "booking_reference": booking.Reference})
	return booking, nil
}

func (s *rentalService) GetBooking(ctx context.Context, bookingID int32) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.refreshStage(ctx, booking, true)
	return booking, nil
}

func (s *rentalService) ListBookings(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	bookings, total, err := s.bookingRepo.ListByRequester(ctx, requesterID, status, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	for i := range bookings {
		s.refreshStage(ctx, &bookings[i], false)
	}
	return bookings, total, nil
}

// refreshStage folds the derived overdue assessment into the booking so
// readers always see current late accrual. Persisting is best effort; the
// periodic recompute job converges stragglers.
func (s *rentalService) refreshStage(ctx context.Context, booking *domain.Booking, persist bool) {
	assessment := pricing.AssessStage(booking, s.now().UTC())
	changed := assessment.Stage != booking.RentalStage ||
		assessment.LateHours != booking.LateHours ||
		assessment.LateFee != booking.LateFee
	if !changed {
		return
	}
	booking.RentalStage = assessment.Stage
	booking.LateHours = assessment.LateHours
	booking.LateFee = assessment.LateFee
	if persist {
		if err := s.bookingRepo.PersistAssessment(ctx, booking.ID, assessment.Stage, assessment.LateHours, assessment.LateFee); err != nil {
			logger.Warn("failed to persist stage assessment", "booking_id", booking.ID, "error", err)
		}
	}
}

// releaseVehicle is the terminal-path compensating action. The conditional
// write keeps still-referenced vehicles untouched.
func (s *rentalService) releaseVehicle(ctx context.Context, vehicleID int32) {
	if _, err := s.vehicleRepo.ReleaseIfUnblocked(ctx, vehicleID); err != nil {
		logger.Error("failed to release vehicle", "vehicle_id", vehicleID, "error", err)
	}
}

// notify records an outbox row and sends a best-effort email; neither failure
// disturbs the originating operation.
func (s *rentalService) notify(ctx context.Context, userID int32, title, message string, attrs map[string]string) {
	note := &domain.Notification{
		UserID:     userID,
		Title:      title,
		Message:    message,
		Attributes: attrs,
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		logger.Error("failed to create notification", "user_id", userID, "error", err)
	}

	if s.email == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user == nil {
		return
	}
	if err := s.email.Send(ctx, user.Email, title, message, ""); err != nil {
		logger.Warn("failed to send notification email", "user_id", userID, "error", err)
	}
}

func newBookingReference() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, reference, vehicle_id, requester_id, pickup_at, drop_at, grace_period_hours,
	rental_stage, booking_status, payment_status, per_day_price, billable_days,
	total_amount, final_amount, advance_required, advance_paid, remaining_amount,
	hourly_late_rate, late_hours, late_fee, bargain, pickup_inspection, return_inspection,
	cancel_reason, full_payment_amount, refund_amount, payment_deadline, created_on, updated_on`

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	bargain, err := marshalBargain(b.Bargain)
	if err != nil {
		return err
	}
	pickup, err := marshalInspection(b.PickupInspection)
	if err != nil {
		return err
	}
	ret, err := marshalInspection(b.ReturnInspection)
	if err != nil {
		return err
	}
	query := `INSERT INTO bookings (reference, vehicle_id, requester_id, pickup_at, drop_at, grace_period_hours,
	            rental_stage, booking_status, payment_status, per_day_price, billable_days,
	            total_amount, final_amount, advance_required, advance_paid, remaining_amount,
	            hourly_late_rate, late_hours, late_fee, bargain, pickup_inspection, return_inspection,
	            cancel_reason, full_payment_amount, refund_amount, payment_deadline, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, NOW(), NOW())
	          RETURNING id, created_on, updated_on`
	return r.db.QueryRowContext(ctx, query,
		b.Reference, b.VehicleID, b.RequesterID, b.PickupAt, b.DropAt, b.GracePeriodHours,
		b.RentalStage, b.BookingStatus, b.PaymentStatus, b.PerDayPrice, b.BillableDays,
		b.TotalAmount, b.FinalAmount, b.AdvanceRequired, b.AdvancePaid, b.RemainingAmount,
		b.HourlyLateRate, b.LateHours, b.LateFee, bargain, pickup, ret,
		b.CancelReason, b.FullPaymentAmount, b.RefundAmount, b.PaymentDeadline,
	).Scan(&b.ID, &b.CreatedOn, &b.UpdatedOn)
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("booking")
	}
	return b, err
}

func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	bargain, err := marshalBargain(b.Bargain)
	if err != nil {
		return err
	}
	pickup, err := marshalInspection(b.PickupInspection)
	if err != nil {
		return err
	}
	ret, err := marshalInspection(b.ReturnInspection)
	if err != nil {
		return err
	}
	query := `UPDATE bookings SET rental_stage=$1, booking_status=$2, payment_status=$3,
	            final_amount=$4, advance_paid=$5, remaining_amount=$6,
	            hourly_late_rate=$7, late_hours=$8, late_fee=$9,
	            bargain=$10, pickup_inspection=$11, return_inspection=$12,
	            cancel_reason=$13, full_payment_amount=$14, refund_amount=$15, payment_deadline=$16, updated_on=NOW()
	          WHERE id=$17`
	_, err = r.db.ExecContext(ctx, query,
		b.RentalStage, b.BookingStatus, b.PaymentStatus,
		b.FinalAmount, b.AdvancePaid, b.RemainingAmount,
		b.HourlyLateRate, b.LateHours, b.LateFee,
		bargain, pickup, ret,
		b.CancelReason, b.FullPaymentAmount, b.RefundAmount, b.PaymentDeadline, b.ID,
	)
	return err
}

func (r *bookingRepository) ListByRequester(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE requester_id = $1`
	args := []interface{}{requesterID}
	argIdx := 2
	if status != "" {
		query += fmt.Sprintf(" AND booking_status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	countQuery := "SELECT count(*) FROM (" + query + ") as sub"
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY created_on DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, count, rows.Err()
}

func (r *bookingRepository) ListByStages(ctx context.Context, stages []domain.RentalStage) ([]domain.Booking, error) {
	if len(stages) == 0 {
		return nil, nil
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_status = 'CONFIRMED' AND rental_stage IN (`
	args := make([]interface{}, 0, len(stages))
	for i, s := range stages {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("$%d", i+1)
		args = append(args, s)
	}
	query += ")"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// PersistAssessment writes a derived stage recompute. GREATEST keeps late
// hours and fee monotonic under concurrent recomputes; the stage guard stops
// any backward move out of the active/overdue pair.
func (r *bookingRepository) PersistAssessment(ctx context.Context, id int32, stage domain.RentalStage, lateHours int, lateFee float64) error {
	query := `UPDATE bookings
	          SET rental_stage = $2,
	              late_hours = GREATEST(late_hours, $3),
	              late_fee = GREATEST(late_fee, $4),
	              updated_on = NOW()
	          WHERE id = $1 AND rental_stage IN ('ACTIVE', 'OVERDUE')`
	_, err := r.db.ExecContext(ctx, query, id, stage, lateHours, lateFee)
	return err
}

func (r *bookingRepository) CancelStalePendingPayments(ctx context.Context, now time.Time, fallback time.Duration, reason string) ([]domain.Booking, error) {
	query := `UPDATE bookings
	          SET booking_status = 'CANCELLED', cancel_reason = $1, updated_on = NOW()
	          WHERE booking_status = 'PENDING_PAYMENT'
	            AND advance_paid = 0
	            AND COALESCE(payment_deadline, created_on + $2::interval) < $3
	          RETURNING id, reference, vehicle_id, requester_id`
	interval := fmt.Sprintf("%d minutes", int(fallback.Minutes()))
	rows, err := r.db.QueryContext(ctx, query, reason, interval, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cancelled []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.Reference, &b.VehicleID, &b.RequesterID); err != nil {
			return nil, err
		}
		b.BookingStatus = domain.BookingStatusCancelled
		b.CancelReason = reason
		cancelled = append(cancelled, b)
	}
	return cancelled, rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var bargain, pickup, ret []byte
	err := row.Scan(
		&b.ID, &b.Reference, &b.VehicleID, &b.RequesterID, &b.PickupAt, &b.DropAt, &b.GracePeriodHours,
		&b.RentalStage, &b.BookingStatus, &b.PaymentStatus, &b.PerDayPrice, &b.BillableDays,
		&b.TotalAmount, &b.FinalAmount, &b.AdvanceRequired, &b.AdvancePaid, &b.RemainingAmount,
		&b.HourlyLateRate, &b.LateHours, &b.LateFee, &bargain, &pickup, &ret,
		&b.CancelReason, &b.FullPaymentAmount, &b.RefundAmount, &b.PaymentDeadline, &b.CreatedOn, &b.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	if len(bargain) > 0 {
		b.Bargain = &domain.Bargain{}
		if err := json.Unmarshal(bargain, b.Bargain); err != nil {
			return nil, err
		}
	}
	if len(pickup) > 0 {
		b.PickupInspection = &domain.Inspection{}
		if err := json.Unmarshal(pickup, b.PickupInspection); err != nil {
			return nil, err
		}
	}
	if len(ret) > 0 {
		b.ReturnInspection = &domain.Inspection{}
		if err := json.Unmarshal(ret, b.ReturnInspection); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func marshalInspection(i *domain.Inspection) ([]byte, error) {
	if i == nil {
		return nil, nil
	}
	return json.Marshal(i)
}

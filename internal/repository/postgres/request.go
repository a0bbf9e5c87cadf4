package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/repository"
)

type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) repository.RequestRepository {
	return &requestRepository{db: db}
}

const requestColumns = `id, vehicle_id, requester_id, pickup_at, drop_at, grace_period_hours, per_day_price, billable_days,
	total_amount, final_amount, advance_required, advance_paid, remaining_amount,
	payment_status, status, bargain, created_on, updated_on`

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	bargain, err := marshalBargain(req.Bargain)
	if err != nil {
		return err
	}
	query := `INSERT INTO requests (vehicle_id, requester_id, pickup_at, drop_at, grace_period_hours, per_day_price, billable_days,
	            total_amount, final_amount, advance_required, advance_paid, remaining_amount,
	            payment_status, status, bargain, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	          RETURNING id, created_on, updated_on`
	return r.db.QueryRowContext(ctx, query,
		req.VehicleID, req.RequesterID, req.PickupAt, req.DropAt, req.GracePeriodHours, req.PerDayPrice, req.BillableDays,
		req.TotalAmount, req.FinalAmount, req.AdvanceRequired, req.AdvancePaid, req.RemainingAmount,
		req.PaymentStatus, req.Status, bargain,
	).Scan(&req.ID, &req.CreatedOn, &req.UpdatedOn)
}

func (r *requestRepository) GetByID(ctx context.Context, id int32) (*domain.Request, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("request")
	}
	return req, err
}

func (r *requestRepository) Update(ctx context.Context, req *domain.Request) error {
	bargain, err := marshalBargain(req.Bargain)
	if err != nil {
		return err
	}
	query := `UPDATE requests SET final_amount=$1, advance_required=$2, advance_paid=$3, remaining_amount=$4,
	            payment_status=$5, status=$6, bargain=$7, updated_on=NOW()
	          WHERE id=$8`
	_, err = r.db.ExecContext(ctx, query,
		req.FinalAmount, req.AdvanceRequired, req.AdvancePaid, req.RemainingAmount,
		req.PaymentStatus, req.Status, bargain, req.ID,
	)
	return err
}

func (r *requestRepository) Delete(ctx context.Context, id int32) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	return err
}

func (r *requestRepository) ListByRequester(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Request, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + requestColumns + ` FROM requests WHERE requester_id = $1`
	args := []interface{}{requesterID}
	argIdx := 2
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
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

	var requests []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *req)
	}
	return requests, count, rows.Err()
}

func (r *requestRepository) HasPendingForVehicle(ctx context.Context, vehicleID, requesterID int32) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM requests WHERE vehicle_id = $1 AND requester_id = $2 AND status = 'PENDING')`
	err := r.db.QueryRowContext(ctx, query, vehicleID, requesterID).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*domain.Request, error) {
	req := &domain.Request{}
	var bargain []byte
	err := row.Scan(
		&req.ID, &req.VehicleID, &req.RequesterID, &req.PickupAt, &req.DropAt, &req.GracePeriodHours, &req.PerDayPrice, &req.BillableDays,
		&req.TotalAmount, &req.FinalAmount, &req.AdvanceRequired, &req.AdvancePaid, &req.RemainingAmount,
		&req.PaymentStatus, &req.Status, &bargain, &req.CreatedOn, &req.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	if len(bargain) > 0 {
		req.Bargain = &domain.Bargain{}
		if err := json.Unmarshal(bargain, req.Bargain); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func marshalBargain(b *domain.Bargain) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

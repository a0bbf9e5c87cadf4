package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/repository"
)

// noBlockingReservation guards every availability-affecting write: a vehicle
// is blocked while a pending request or a confirmed, uncompleted booking
// references it.
const noBlockingReservation = `
	NOT EXISTS (
		SELECT 1 FROM requests r
		WHERE r.vehicle_id = vehicles.id AND r.status = 'PENDING'
	)
	AND NOT EXISTS (
		SELECT 1 FROM bookings b
		WHERE b.vehicle_id = vehicles.id
		  AND b.booking_status = 'CONFIRMED'
		  AND b.rental_stage <> 'COMPLETED'
	)`

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (name, plate_number, per_day_price, price_override, fleet_status, next_service_due, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING id, created_on, updated_on`
	if v.FleetStatus == "" {
		v.FleetStatus = domain.FleetStatusAvailable
	}
	return r.db.QueryRowContext(ctx, query,
		v.Name, v.PlateNumber, v.PerDayPrice, v.PriceOverride, v.FleetStatus, v.NextServiceDue,
	).Scan(&v.ID, &v.CreatedOn, &v.UpdatedOn)
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, name, plate_number, per_day_price, price_override, fleet_status, next_service_due, created_on, updated_on
	          FROM vehicles WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Name, &v.PlateNumber, &v.PerDayPrice, &v.PriceOverride, &v.FleetStatus, &v.NextServiceDue, &v.CreatedOn, &v.UpdatedOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("vehicle")
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *vehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	query := `UPDATE vehicles SET name=$1, plate_number=$2, per_day_price=$3, price_override=$4, next_service_due=$5, updated_on=NOW() WHERE id=$6`
	_, err := r.db.ExecContext(ctx, query, v.Name, v.PlateNumber, v.PerDayPrice, v.PriceOverride, v.NextServiceDue, v.ID)
	return err
}

func (r *vehicleRepository) List(ctx context.Context, status string, page, pageSize int32) ([]domain.Vehicle, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT id, name, plate_number, per_day_price, price_override, fleet_status, next_service_due, created_on, updated_on
	          FROM vehicles`
	args := []interface{}{}
	argIdx := 1
	if status != "" {
		query += fmt.Sprintf(" WHERE fleet_status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	countQuery := "SELECT count(*) FROM (" + query + ") as sub"
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.PlateNumber, &v.PerDayPrice, &v.PriceOverride, &v.FleetStatus, &v.NextServiceDue, &v.CreatedOn, &v.UpdatedOn); err != nil {
			return nil, 0, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, count, rows.Err()
}

// ReserveIfAvailable is the single compare-and-set that decides booking
// races: concurrent callers hit the same conditional UPDATE and at most one
// row transition succeeds.
func (r *vehicleRepository) ReserveIfAvailable(ctx context.Context, id int32) (bool, error) {
	query := `UPDATE vehicles SET fleet_status='RESERVED', updated_on=NOW()
	          WHERE id=$1 AND fleet_status='AVAILABLE'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *vehicleRepository) MarkRented(ctx context.Context, id int32) (bool, error) {
	query := `UPDATE vehicles SET fleet_status='RENTED', updated_on=NOW()
	          WHERE id=$1 AND fleet_status='RESERVED'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *vehicleRepository) UnmarkRented(ctx context.Context, id int32) (bool, error) {
	query := `UPDATE vehicles SET fleet_status='RESERVED', updated_on=NOW()
	          WHERE id=$1 AND fleet_status='RENTED'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *vehicleRepository) ReleaseIfUnblocked(ctx context.Context, id int32) (bool, error) {
	query := `UPDATE vehicles SET fleet_status='AVAILABLE', updated_on=NOW()
	          WHERE id=$1 AND fleet_status IN ('RESERVED','RENTED') AND ` + noBlockingReservation
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *vehicleRepository) SetStatusIfUnblocked(ctx context.Context, id int32, from, to domain.FleetStatus) (bool, error) {
	query := `UPDATE vehicles SET fleet_status=$1, updated_on=NOW()
	          WHERE id=$2 AND fleet_status=$3 AND ` + noBlockingReservation
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *vehicleRepository) ResolveDueMaintenance(ctx context.Context, now time.Time) ([]int32, error) {
	query := `UPDATE vehicles SET fleet_status='AVAILABLE', next_service_due=NULL, updated_on=NOW()
	          WHERE fleet_status='MAINTENANCE' AND next_service_due IS NOT NULL AND next_service_due <= $1
	          RETURNING id`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

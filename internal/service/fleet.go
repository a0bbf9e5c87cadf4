package service

import (
	"context"
	"fmt"

	"github.com/MrAk1876/carRent-sub002/internal/apperr"
	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/repository"
)

type fleetService struct {
	vehicleRepo repository.VehicleRepository
}

func NewFleetService(vehicleRepo repository.VehicleRepository) FleetService {
	return &fleetService{vehicleRepo: vehicleRepo}
}

func (s *fleetService) CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	if vehicle.Name == "" {
		return nil, apperr.Validation("vehicle name is required")
	}
	if vehicle.PerDayPrice <= 0 {
		return nil, apperr.Validation("per-day price must be positive")
	}
	if vehicle.FleetStatus == "" {
		vehicle.FleetStatus = domain.FleetStatusAvailable
	}
	if !vehicle.FleetStatus.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown fleet status %q", vehicle.FleetStatus))
	}
	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *fleetService) GetVehicle(ctx context.Context, vehicleID int32) (*domain.Vehicle, error) {
	return s.vehicleRepo.GetByID(ctx, vehicleID)
}

// UpdateVehicle edits catalogue fields only. Fleet status moves exclusively
// through UpdateFleetStatus so every transition passes the legality table.
func (s *fleetService) UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	existing, err := s.vehicleRepo.GetByID(ctx, vehicle.ID)
	if err != nil {
		return nil, err
	}
	if vehicle.PerDayPrice <= 0 {
		return nil, apperr.Validation("per-day price must be positive")
	}
	if vehicle.PriceOverride != nil && *vehicle.PriceOverride <= 0 {
		return nil, apperr.Validation("price override must be positive")
	}

	existing.Name = vehicle.Name
	existing.PlateNumber = vehicle.PlateNumber
	existing.PerDayPrice = vehicle.PerDayPrice
	existing.PriceOverride = vehicle.PriceOverride
	existing.NextServiceDue = vehicle.NextServiceDue

	if err := s.vehicleRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *fleetService) ListVehicles(ctx context.Context, status string, page, pageSize int32) ([]domain.Vehicle, int32, error) {
	if status != "" && !domain.FleetStatus(status).Valid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown fleet status %q", status))
	}
	return s.vehicleRepo.List(ctx, status, page, pageSize)
}

// UpdateFleetStatus applies a manual fleet transition. RESERVED and RENTED
// are lifecycle statuses reachable only through the booking flow and cannot
// be set here. Legality is checked against the transition table, then
// enforced again inside the conditional write so concurrent moves cannot
// interleave.
func (s *fleetService) UpdateFleetStatus(ctx context.Context, vehicleID int32, target domain.FleetStatus) (*domain.Vehicle, error) {
	if !target.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown fleet status %q", target))
	}
	switch target {
	case domain.FleetStatusReserved, domain.FleetStatusRented:
		return nil, apperr.Validation(fmt.Sprintf("fleet status %s is set by the booking lifecycle", target))
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.FleetStatus == target {
		return vehicle, nil
	}
	if !vehicle.FleetStatus.CanTransition(target) {
		return nil, apperr.FleetStateConflict(fmt.Sprintf("cannot move vehicle from %s to %s", vehicle.FleetStatus, target))
	}

	ok, err := s.vehicleRepo.SetStatusIfUnblocked(ctx, vehicleID, vehicle.FleetStatus, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.FleetStateConflict("vehicle state changed or an open reservation blocks the transition")
	}

	vehicle.FleetStatus = target
	return vehicle, nil
}

package http

import (
	"net/http"
	"time"

	"github.com/MrAk1876/carRent-sub002/internal/domain"
	"github.com/MrAk1876/carRent-sub002/internal/service"
)

// FleetHandler exposes the vehicle catalogue and fleet state machine.
type FleetHandler struct {
	fleet service.FleetService
}

func NewFleetHandler(fleet service.FleetService) *FleetHandler {
	return &FleetHandler{fleet: fleet}
}

type vehicleDTO struct {
	Name           string     `json:"name" validate:"required,max=200"`
	PlateNumber    string     `json:"plate_number" validate:"required,max=20"`
	PerDayPrice    float64    `json:"per_day_price" validate:"required,gt=0"`
	PriceOverride  *float64   `json:"price_override"`
	NextServiceDue *time.Time `json:"next_service_due"`
}

func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var dto vehicleDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	vehicle, err := h.fleet.CreateVehicle(r.Context(), &domain.Vehicle{
		Name:           dto.Name,
		PlateNumber:    dto.PlateNumber,
		PerDayPrice:    dto.PerDayPrice,
		PriceOverride:  dto.PriceOverride,
		NextServiceDue: dto.NextServiceDue,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	vehicle, err := h.fleet.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *FleetHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto vehicleDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	vehicle, err := h.fleet.UpdateVehicle(r.Context(), &domain.Vehicle{
		ID:             id,
		Name:           dto.Name,
		PlateNumber:    dto.PlateNumber,
		PerDayPrice:    dto.PerDayPrice,
		PriceOverride:  dto.PriceOverride,
		NextServiceDue: dto.NextServiceDue,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	status := r.URL.Query().Get("status")

	vehicles, total, err := h.fleet.ListVehicles(r.Context(), status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items: vehicles,
		Meta:  listMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

type fleetStatusDTO struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE MAINTENANCE INACTIVE"`
}

func (h *FleetHandler) UpdateFleetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var dto fleetStatusDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	vehicle, err := h.fleet.UpdateFleetStatus(r.Context(), id, domain.FleetStatus(dto.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

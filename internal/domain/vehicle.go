package domain

import "time"

type FleetStatus string

const (
	FleetStatusAvailable   FleetStatus = "AVAILABLE"
	FleetStatusReserved    FleetStatus = "RESERVED"
	FleetStatusRented      FleetStatus = "RENTED"
	FleetStatusMaintenance FleetStatus = "MAINTENANCE"
	FleetStatusInactive    FleetStatus = "INACTIVE"
)

// fleetTransitions lists the structurally legal moves. Blocking-reservation
// checks happen in the fleet service on top of this table.
var fleetTransitions = map[FleetStatus][]FleetStatus{
	FleetStatusAvailable:   {FleetStatusReserved, FleetStatusMaintenance, FleetStatusInactive},
	FleetStatusReserved:    {FleetStatusRented, FleetStatusAvailable, FleetStatusMaintenance, FleetStatusInactive},
	FleetStatusRented:      {FleetStatusAvailable, FleetStatusInactive},
	FleetStatusMaintenance: {FleetStatusAvailable, FleetStatusInactive},
	FleetStatusInactive:    {FleetStatusAvailable, FleetStatusMaintenance},
}

// CanTransition reports whether moving from one fleet status to another is
// structurally legal. A Rented vehicle can never enter Maintenance.
func (s FleetStatus) CanTransition(target FleetStatus) bool {
	for _, t := range fleetTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the closed set of fleet statuses.
func (s FleetStatus) Valid() bool {
	switch s {
	case FleetStatusAvailable, FleetStatusReserved, FleetStatusRented, FleetStatusMaintenance, FleetStatusInactive:
		return true
	}
	return false
}

type Vehicle struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	PlateNumber string `json:"plate_number"`
	// PerDayPrice is the base daily rate; PriceOverride, when set, takes
	// precedence (manual or dynamic pricing).
	PerDayPrice    float64     `json:"per_day_price"`
	PriceOverride  *float64    `json:"price_override,omitempty"`
	FleetStatus    FleetStatus `json:"fleet_status"`
	NextServiceDue *time.Time  `json:"next_service_due,omitempty"`
	CreatedOn      time.Time   `json:"created_on"`
	UpdatedOn      time.Time   `json:"updated_on"`
}

// EffectivePerDayPrice returns the override price if set and positive,
// otherwise the base per-day price.
func (v *Vehicle) EffectivePerDayPrice() float64 {
	if v.PriceOverride != nil && *v.PriceOverride > 0 {
		return *v.PriceOverride
	}
	return v.PerDayPrice
}

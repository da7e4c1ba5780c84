// Package domain contains the core data types for the FleetTrack trip service.
// This package has no dependencies beyond uuid and is imported by every other
// internal package (repo, readstore, service, handler, telemetry).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	StatusScheduled  TripStatus = "Scheduled"
	StatusInProgress TripStatus = "InProgress"
	StatusCompleted  TripStatus = "Completed"
	StatusCancelled  TripStatus = "Cancelled"
)

// transitions is the single source of truth for the trip state machine.
// A trip moves Scheduled → InProgress → Completed; Cancelled is reachable
// from either non-terminal state. Completed and Cancelled are terminal.
var transitions = map[TripStatus][]TripStatus{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether a trip in status s may move to status to.
// Every status change — Start, Complete, and status-bearing patches — is
// guarded by this table.
func (s TripStatus) CanTransition(to TripStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the four known statuses.
func (s TripStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// TripType is an informational category tag on a trip.
type TripType string

const (
	TypeRegular     TripType = "Regular"
	TypeEmergency   TripType = "Emergency"
	TypeMaintenance TripType = "Maintenance"
)

// Valid reports whether t is one of the known trip types.
func (t TripType) Valid() bool {
	switch t {
	case TypeRegular, TypeEmergency, TypeMaintenance:
		return true
	}
	return false
}

// Trip is the authoritative write-store record of a vehicle trip.
// Driver and vehicle ids are validated for format only; cross-service
// referential integrity is deliberately not enforced here.
type Trip struct {
	ID                 uuid.UUID  `json:"id"`
	DriverID           string     `json:"driverId"`
	VehicleID          string     `json:"vehicleId"`
	StartLocation      string     `json:"startLocation"`
	EndLocation        string     `json:"endLocation"`
	Route              string     `json:"route,omitempty"`
	ScheduledStartTime time.Time  `json:"scheduledStartTime"`
	EstimatedEndTime   time.Time  `json:"estimatedEndTime"`
	ActualStartTime    *time.Time `json:"actualStartTime"` // nil until the trip starts
	ActualEndTime      *time.Time `json:"actualEndTime"`   // nil until the trip completes
	Status             TripStatus `json:"status"`
	TripType           TripType   `json:"tripType"`
	DistanceTraveled   *float64   `json:"distanceTraveled,omitempty"`
	FuelConsumed       *float64   `json:"fuelConsumed,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// TripPatch is a merge patch for a trip: only non-nil fields are applied,
// absent fields leave the stored value untouched.
type TripPatch struct {
	Route            *string     `json:"route"`
	Status           *TripStatus `json:"status"`
	ActualStartTime  *time.Time  `json:"actualStartTime"`
	ActualEndTime    *time.Time  `json:"actualEndTime"`
	DistanceTraveled *float64    `json:"distanceTraveled"`
	FuelConsumed     *float64    `json:"fuelConsumed"`
	Notes            *string     `json:"notes"`
}

// Apply merges the patch into trip and returns the result.
// Status is merged like any other field; transition legality is the
// service's responsibility, not the patch's.
func (p TripPatch) Apply(trip Trip) Trip {
	if p.Route != nil {
		trip.Route = *p.Route
	}
	if p.Status != nil {
		trip.Status = *p.Status
	}
	if p.ActualStartTime != nil {
		trip.ActualStartTime = p.ActualStartTime
	}
	if p.ActualEndTime != nil {
		trip.ActualEndTime = p.ActualEndTime
	}
	if p.DistanceTraveled != nil {
		trip.DistanceTraveled = p.DistanceTraveled
	}
	if p.FuelConsumed != nil {
		trip.FuelConsumed = p.FuelConsumed
	}
	if p.Notes != nil {
		trip.Notes = *p.Notes
	}
	return trip
}

// TripFilter carries optional query filters from the HTTP layer to the
// read store. Zero values mean "no filter".
type TripFilter struct {
	Status    TripStatus
	DriverID  string
	VehicleID string
}

package domain

import "time"

// TelemetrySample is a single location/speed/fuel reading from a vehicle.
// Samples are append-only time-series facts: they are never updated or
// deleted, and duplicates are acceptable (at-least-once ingestion).
//
// TripID is empty for samples not yet associated with a trip.
type TelemetrySample struct {
	TripID    string    `json:"tripId,omitempty"`
	VehicleID string    `json:"vehicleId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	FuelLevel float64   `json:"fuelLevel"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// SampleFilter carries optional query filters for the telemetry log.
type SampleFilter struct {
	VehicleID string
	TripID    string
}

package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleettrack/fleettrack/internal/domain"
)

// createTripRequest is the POST /api/trips payload.
// Struct tags give the cheap format checks; business rules (state machine,
// time ordering) stay in the service.
type createTripRequest struct {
	DriverID           string    `json:"driverId" validate:"required,max=64"`
	VehicleID          string    `json:"vehicleId" validate:"required,max=64"`
	StartLocation      string    `json:"startLocation" validate:"required,max=255"`
	EndLocation        string    `json:"endLocation" validate:"required,max=255"`
	Route              string    `json:"route" validate:"max=255"`
	ScheduledStartTime time.Time `json:"scheduledStartTime" validate:"required"`
	EstimatedEndTime   time.Time `json:"estimatedEndTime" validate:"required"`
	TripType           string    `json:"tripType" validate:"required,oneof=Regular Emergency Maintenance"`
	Notes              string    `json:"notes" validate:"max=2000"`
}

// updateTripRequest is the PATCH /api/trips/{id} merge-patch payload.
// Every field is a pointer: nil means "leave the stored value alone".
type updateTripRequest struct {
	Route            *string    `json:"route" validate:"omitempty,max=255"`
	Status           *string    `json:"status" validate:"omitempty,oneof=Scheduled InProgress Completed Cancelled"`
	ActualStartTime  *time.Time `json:"actualStartTime"`
	ActualEndTime    *time.Time `json:"actualEndTime"`
	DistanceTraveled *float64   `json:"distanceTraveled" validate:"omitempty,gte=0"`
	FuelConsumed     *float64   `json:"fuelConsumed" validate:"omitempty,gte=0"`
	Notes            *string    `json:"notes" validate:"omitempty,max=2000"`
}

// CreateTrip handles POST /api/trips.
// The optional Idempotency-Key header protects against client retries:
// a reused unexpired key yields 409 with no new trip.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	draft := domain.Trip{
		DriverID:           req.DriverID,
		VehicleID:          req.VehicleID,
		StartLocation:      req.StartLocation,
		EndLocation:        req.EndLocation,
		Route:              req.Route,
		ScheduledStartTime: req.ScheduledStartTime,
		EstimatedEndTime:   req.EstimatedEndTime,
		TripType:           domain.TripType(req.TripType),
		Notes:              req.Notes,
	}

	created, err := s.trips.Create(r.Context(), draft, r.Header.Get("Idempotency-Key"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/trips/"+created.ID.String())
	s.writeJSON(w, http.StatusCreated, created)
}

// ListTrips handles GET /api/trips with optional status, driverId, and
// vehicleId filters, served entirely from the read store.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	filter := domain.TripFilter{
		DriverID:  r.URL.Query().Get("driverId"),
		VehicleID: r.URL.Query().Get("vehicleId"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		st := domain.TripStatus(status)
		if !st.Valid() {
			s.writeError(w, http.StatusBadRequest, "validation_error", "unknown status filter")
			return
		}
		filter.Status = st
	}

	trips, err := s.trips.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, trips)
}

// GetTrip handles GET /api/trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tripID(w, r)
	if !ok {
		return
	}

	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, trip)
}

// UpdateTrip handles PATCH /api/trips/{id}: a merge patch where absent
// fields leave the stored values untouched.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tripID(w, r)
	if !ok {
		return
	}

	var req updateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	patch := domain.TripPatch{
		Route:            req.Route,
		ActualStartTime:  req.ActualStartTime,
		ActualEndTime:    req.ActualEndTime,
		DistanceTraveled: req.DistanceTraveled,
		FuelConsumed:     req.FuelConsumed,
		Notes:            req.Notes,
	}
	if req.Status != nil {
		st := domain.TripStatus(*req.Status)
		patch.Status = &st
	}

	updated, err := s.trips.Update(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, updated)
}

// StartTrip handles POST /api/trips/{id}/start.
func (s *Server) StartTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tripID(w, r)
	if !ok {
		return
	}

	trip, err := s.trips.Start(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, trip)
}

// CompleteTrip handles POST /api/trips/{id}/complete.
func (s *Server) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tripID(w, r)
	if !ok {
		return
	}

	trip, err := s.trips.Complete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, trip)
}

// tripID parses the {id} path parameter. A malformed UUID cannot name any
// trip, so it is reported as 404 rather than 400.
func (s *Server) tripID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not_found", "trip not found")
		return uuid.Nil, false
	}
	return id, true
}

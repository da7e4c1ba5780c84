// Package service contains the business logic for the FleetTrack trip API.
// The trip service is the command processor: it validates input, guards the
// state machine, commits to the write store, propagates the projection to the
// read store, and notifies the telemetry sink — strictly in that order.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleettrack/fleettrack/internal/domain"
	"github.com/fleettrack/fleettrack/internal/readstore"
	"github.com/fleettrack/fleettrack/internal/repo"
)

// maxIDLen bounds driver and vehicle id length; only the format is checked,
// cross-service existence is not.
const maxIDLen = 64

const (
	maxLocationLen = 255
	maxNotesLen    = 2000
)

// AdmissionRegistry is the idempotency guard consumed by Create.
type AdmissionRegistry interface {
	// TryAdmit returns true exactly when token has not been consumed within
	// its ttl window. Must be atomic under concurrent calls.
	TryAdmit(token string, ttl time.Duration) bool

	// Release hands back a token whose admitted operation never committed,
	// making it admissible again immediately.
	Release(token string)
}

// TelemetryNotifier delivers a trip-status sample to the telemetry sink.
// Calls are best-effort: the service logs and swallows every error.
type TelemetryNotifier interface {
	NotifyTripStatus(ctx context.Context, sample domain.TelemetrySample) error
}

// TripService implements the trip command processor and query operations.
type TripService struct {
	writes   repo.TripRepo
	views    readstore.TripViews
	registry AdmissionRegistry
	notifier TelemetryNotifier
	log      *slog.Logger

	idempotencyTTL time.Duration
	notifyTimeout  time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewTripService constructs a TripService with all its dependencies.
// idempotencyTTL is the duplicate-rejection window for creation tokens;
// notifyTimeout bounds each fire-and-forget telemetry call.
func NewTripService(
	writes repo.TripRepo,
	views readstore.TripViews,
	registry AdmissionRegistry,
	notifier TelemetryNotifier,
	log *slog.Logger,
	idempotencyTTL, notifyTimeout time.Duration,
) *TripService {
	return &TripService{
		writes:         writes,
		views:          views,
		registry:       registry,
		notifier:       notifier,
		log:            log,
		idempotencyTTL: idempotencyTTL,
		notifyTimeout:  notifyTimeout,
		now:            time.Now,
	}
}

// Create validates and persists a new trip in status Scheduled.
//
// When idempotencyKey is non-empty and has already been consumed within its
// window, Create fails with domain.ErrDuplicateRequest before any side
// effect. Otherwise the sequence is: write-store insert, read-store upsert,
// best-effort telemetry notification with zeroed coordinates.
func (s *TripService) Create(ctx context.Context, trip domain.Trip, idempotencyKey string) (domain.Trip, error) {
	if err := validateNewTrip(trip); err != nil {
		return domain.Trip{}, err
	}

	// Idempotency is opt-in per request: an absent key always admits.
	if idempotencyKey != "" && !s.registry.TryAdmit(idempotencyKey, s.idempotencyTTL) {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", domain.ErrDuplicateRequest)
	}

	trip.ID = uuid.New()
	trip.Status = domain.StatusScheduled
	trip.ActualStartTime = nil
	trip.ActualEndTime = nil
	trip.DistanceTraveled = nil
	trip.FuelConsumed = nil

	created, err := s.writes.Create(ctx, trip)
	if err != nil {
		// Write commit failed: neither the read store nor telemetry runs,
		// and the token goes back so the client's retry is not rejected as
		// a duplicate of a trip that was never created.
		if idempotencyKey != "" {
			s.registry.Release(idempotencyKey)
		}
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	if err := s.propagate(ctx, created); err != nil {
		// The write store holds the trip; surface the projection failure
		// without rolling back (the stores are not transactionally linked).
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	s.notifyAsync(created)
	return created, nil
}

// Update applies a merge patch to an existing trip: only fields present in
// the patch are changed. A status change is guarded by the state machine,
// which is how cancellation is expressed (status → Cancelled from either
// non-terminal state).
func (s *TripService) Update(ctx context.Context, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
	if err := validatePatch(patch); err != nil {
		return domain.Trip{}, err
	}

	current, err := s.writes.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	if patch.Status != nil && *patch.Status != current.Status {
		if !current.Status.CanTransition(*patch.Status) {
			return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w: %s → %s",
				domain.ErrInvalidTransition, current.Status, *patch.Status)
		}
	}

	merged := patch.Apply(current)
	updated, err := s.writes.Update(ctx, merged)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	if err := s.propagate(ctx, updated); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	s.notifyAsync(updated)
	return updated, nil
}

// Start moves a trip from Scheduled to InProgress and stamps the actual
// start time. Any other current status yields domain.ErrInvalidTransition.
//
// Concurrent Start/Complete calls on the same trip race on this guard; the
// loser observing ErrInvalidTransition is the expected outcome.
func (s *TripService) Start(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return s.transition(ctx, "Start", id, domain.StatusScheduled, domain.StatusInProgress)
}

// Complete moves a trip from InProgress to Completed and stamps the actual
// end time. Any other current status yields domain.ErrInvalidTransition.
func (s *TripService) Complete(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return s.transition(ctx, "Complete", id, domain.StatusInProgress, domain.StatusCompleted)
}

// transition implements the shared Start/Complete sequence: load, guard,
// stamp, commit write store, propagate, notify.
func (s *TripService) transition(ctx context.Context, op string, id uuid.UUID, from, to domain.TripStatus) (domain.Trip, error) {
	trip, err := s.writes.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: %w", op, err)
	}

	if trip.Status != from {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: %w: %s → %s",
			op, domain.ErrInvalidTransition, trip.Status, to)
	}

	now := s.now()
	trip.Status = to
	switch to {
	case domain.StatusInProgress:
		trip.ActualStartTime = &now
	case domain.StatusCompleted:
		trip.ActualEndTime = &now
	}

	updated, err := s.writes.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: %w", op, err)
	}

	if err := s.propagate(ctx, updated); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: %w", op, err)
	}

	s.notifyAsync(updated)
	return updated, nil
}

// GetByID returns a single trip from the read store.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	trip, err := s.views.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return trip, nil
}

// List returns trips matching the filter from the read store, most recently
// scheduled first. Always returns a non-nil slice so callers can safely
// range over it.
func (s *TripService) List(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error) {
	trips, err := s.views.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		return []domain.Trip{}, nil
	}
	return trips, nil
}

// propagate upserts the read projection for a trip whose write commit has
// already succeeded. It runs on a context detached from client cancellation:
// once the write store holds the new state, a disconnecting client must not
// be able to silently drop the projection update.
func (s *TripService) propagate(ctx context.Context, trip domain.Trip) error {
	if err := s.views.Upsert(context.WithoutCancel(ctx), trip); err != nil {
		s.log.Error("read store propagation failed",
			"trip_id", trip.ID, "status", trip.Status, "error", err)
		return err
	}
	return nil
}

// notifyAsync sends a status sample to the telemetry sink on a detached
// goroutine with its own timeout. Failures are logged and swallowed: the
// sink being down never fails a trip command. Coordinates are zeroed — the
// processor has no live location feed; they are opaque caller data.
func (s *TripService) notifyAsync(trip domain.Trip) {
	sample := domain.TelemetrySample{
		TripID:    trip.ID.String(),
		VehicleID: trip.VehicleID,
		Status:    string(trip.Status),
		Timestamp: s.now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyTripStatus(ctx, sample); err != nil {
			s.log.Warn("telemetry notification dropped",
				"trip_id", sample.TripID, "status", sample.Status, "error", err)
		}
	}()
}

// validateNewTrip enforces business rules on trip creation.
func validateNewTrip(trip domain.Trip) error {
	if err := validateRef("driverId", trip.DriverID); err != nil {
		return err
	}
	if err := validateRef("vehicleId", trip.VehicleID); err != nil {
		return err
	}
	if strings.TrimSpace(trip.StartLocation) == "" {
		return fmt.Errorf("%w: startLocation is required", domain.ErrValidation)
	}
	if strings.TrimSpace(trip.EndLocation) == "" {
		return fmt.Errorf("%w: endLocation is required", domain.ErrValidation)
	}
	if len(trip.StartLocation) > maxLocationLen || len(trip.EndLocation) > maxLocationLen {
		return fmt.Errorf("%w: location must be at most %d characters", domain.ErrValidation, maxLocationLen)
	}
	if len(trip.Route) > maxLocationLen {
		return fmt.Errorf("%w: route must be at most %d characters", domain.ErrValidation, maxLocationLen)
	}
	if len(trip.Notes) > maxNotesLen {
		return fmt.Errorf("%w: notes must be at most %d characters", domain.ErrValidation, maxNotesLen)
	}
	if trip.ScheduledStartTime.IsZero() {
		return fmt.Errorf("%w: scheduledStartTime is required", domain.ErrValidation)
	}
	if trip.EstimatedEndTime.IsZero() {
		return fmt.Errorf("%w: estimatedEndTime is required", domain.ErrValidation)
	}
	if trip.EstimatedEndTime.Before(trip.ScheduledStartTime) {
		return fmt.Errorf("%w: estimatedEndTime must not be before scheduledStartTime", domain.ErrValidation)
	}
	if !trip.TripType.Valid() {
		return fmt.Errorf("%w: unknown trip type %q", domain.ErrValidation, trip.TripType)
	}
	return nil
}

// validatePatch enforces business rules on the update merge patch.
func validatePatch(patch domain.TripPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *patch.Status)
	}
	if patch.Route != nil && len(*patch.Route) > maxLocationLen {
		return fmt.Errorf("%w: route must be at most %d characters", domain.ErrValidation, maxLocationLen)
	}
	if patch.Notes != nil && len(*patch.Notes) > maxNotesLen {
		return fmt.Errorf("%w: notes must be at most %d characters", domain.ErrValidation, maxNotesLen)
	}
	if patch.DistanceTraveled != nil && *patch.DistanceTraveled < 0 {
		return fmt.Errorf("%w: distanceTraveled must not be negative", domain.ErrValidation)
	}
	if patch.FuelConsumed != nil && *patch.FuelConsumed < 0 {
		return fmt.Errorf("%w: fuelConsumed must not be negative", domain.ErrValidation)
	}
	return nil
}

// validateRef checks a driver/vehicle reference for format only.
func validateRef(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	if len(value) > maxIDLen {
		return fmt.Errorf("%w: %s must be at most %d characters", domain.ErrValidation, field, maxIDLen)
	}
	return nil
}

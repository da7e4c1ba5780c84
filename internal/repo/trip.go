// Package repo contains the Postgres write store for trips.
// The write store is the single source of truth for the state machine.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleettrack/fleettrack/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for the trip write store.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with
	// DB-generated created_at and updated_at populated). The id is assigned
	// by the caller before the insert.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// Update overwrites the mutable fields of an existing trip and returns
	// the updated record. Overlapping writes to the same row are serialized
	// by Postgres; last commit wins. Returns domain.ErrNotFound if no trip
	// with that ID exists.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, driver_id, vehicle_id, start_location, end_location, route,
		scheduled_start_time, estimated_end_time, actual_start_time, actual_end_time,
		status, trip_type, distance_traveled, fuel_consumed, notes, created_at, updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (id, driver_id, vehicle_id, start_location, end_location, route,
			scheduled_start_time, estimated_end_time, status, trip_type, notes)
		VALUES (@id, @driver_id, @vehicle_id, @start_location, @end_location, @route,
			@scheduled_start_time, @estimated_end_time, @status, @trip_type, @notes)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":                   trip.ID,
		"driver_id":            trip.DriverID,
		"vehicle_id":           trip.VehicleID,
		"start_location":       trip.StartLocation,
		"end_location":         trip.EndLocation,
		"route":                trip.Route,
		"scheduled_start_time": trip.ScheduledStartTime,
		"estimated_end_time":   trip.EstimatedEndTime,
		"status":               trip.Status,
		"trip_type":            trip.TripType,
		"notes":                trip.Notes,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// Update overwrites the mutable fields of a trip and returns the updated record.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET route             = @route,
		    status            = @status,
		    actual_start_time = @actual_start_time,
		    actual_end_time   = @actual_end_time,
		    distance_traveled = @distance_traveled,
		    fuel_consumed     = @fuel_consumed,
		    notes             = @notes,
		    updated_at        = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":                trip.ID,
		"route":             trip.Route,
		"status":            trip.Status,
		"actual_start_time": trip.ActualStartTime, // nil becomes NULL
		"actual_end_time":   trip.ActualEndTime,
		"distance_traveled": trip.DistanceTraveled,
		"fuel_consumed":     trip.FuelConsumed,
		"notes":             trip.Notes,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanTrip to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip.
// It handles the UUID and nullable timestamp/metric conversions.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t           domain.Trip
		id          pgtype.UUID
		actualStart pgtype.Timestamptz
		actualEnd   pgtype.Timestamptz
		distance    pgtype.Float8
		fuel        pgtype.Float8
	)

	err := s.Scan(
		&id, &t.DriverID, &t.VehicleID, &t.StartLocation, &t.EndLocation, &t.Route,
		&t.ScheduledStartTime, &t.EstimatedEndTime, &actualStart, &actualEnd,
		&t.Status, &t.TripType, &distance, &fuel, &t.Notes, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	if actualStart.Valid {
		ts := actualStart.Time
		t.ActualStartTime = &ts
	}
	if actualEnd.Valid {
		ts := actualEnd.Time
		t.ActualEndTime = &ts
	}
	if distance.Valid {
		d := distance.Float64
		t.DistanceTraveled = &d
	}
	if fuel.Valid {
		f := fuel.Float64
		t.FuelConsumed = &f
	}

	return t, nil
}

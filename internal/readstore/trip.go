// Package readstore contains the denormalized, query-optimized projection of
// trips, stored in MongoDB. It is written only by the trip command processor,
// immediately after each write-store commit, and serves all query traffic.
//
// The projection may lag the newest write-store commit by one in-flight
// request, but it never reflects a write that has not committed.
package readstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleettrack/fleettrack/internal/domain"
)

// TripViews defines the operations on the trip read projection.
// The service layer depends on this interface so it can be unit-tested
// without a running MongoDB.
type TripViews interface {
	// Upsert writes the projection row for the given trip, replacing any
	// existing row with the same id.
	Upsert(ctx context.Context, trip domain.Trip) error

	// GetByID retrieves a single projection row.
	// Returns domain.ErrNotFound if no row with that id exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// List returns projection rows matching the filter, ordered by
	// scheduled_start_time descending (most recently scheduled first).
	List(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error)
}

// tripDoc is the BSON shape of a projection row. The trip id doubles as the
// document id so upserts are naturally idempotent per trip.
type tripDoc struct {
	ID                 string     `bson:"_id"`
	DriverID           string     `bson:"driver_id"`
	VehicleID          string     `bson:"vehicle_id"`
	StartLocation      string     `bson:"start_location"`
	EndLocation        string     `bson:"end_location"`
	Route              string     `bson:"route"`
	ScheduledStartTime time.Time  `bson:"scheduled_start_time"`
	EstimatedEndTime   time.Time  `bson:"estimated_end_time"`
	ActualStartTime    *time.Time `bson:"actual_start_time,omitempty"`
	ActualEndTime      *time.Time `bson:"actual_end_time,omitempty"`
	Status             string     `bson:"status"`
	TripType           string     `bson:"trip_type"`
	DistanceTraveled   *float64   `bson:"distance_traveled,omitempty"`
	FuelConsumed       *float64   `bson:"fuel_consumed,omitempty"`
	Notes              string     `bson:"notes"`
	CreatedAt          time.Time  `bson:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at"`
}

// mongoTripViews is the MongoDB implementation of TripViews.
type mongoTripViews struct {
	coll *mongo.Collection
}

// NewTripViews constructs a TripViews backed by the "trip_views" collection
// of the given database.
func NewTripViews(db *mongo.Database) TripViews {
	return &mongoTripViews{coll: db.Collection("trip_views")}
}

// Upsert replaces the projection row for trip.ID, inserting it if absent.
func (v *mongoTripViews) Upsert(ctx context.Context, trip domain.Trip) error {
	doc := toDoc(trip)
	opts := options.Replace().SetUpsert(true)
	_, err := v.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("readstore.TripViews.Upsert: %w", err)
	}
	return nil
}

// GetByID retrieves one projection row by trip id.
func (v *mongoTripViews) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	var doc tripDoc
	err := v.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Trip{}, fmt.Errorf("readstore.TripViews.GetByID: %w", domain.ErrNotFound)
		}
		return domain.Trip{}, fmt.Errorf("readstore.TripViews.GetByID: %w", err)
	}
	return fromDoc(doc)
}

// List returns matching projection rows, most recently scheduled first.
func (v *mongoTripViews) List(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.DriverID != "" {
		query["driver_id"] = filter.DriverID
	}
	if filter.VehicleID != "" {
		query["vehicle_id"] = filter.VehicleID
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduled_start_time", Value: -1}})
	cursor, err := v.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("readstore.TripViews.List: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []tripDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("readstore.TripViews.List: %w", err)
	}

	trips := make([]domain.Trip, 0, len(docs))
	for _, doc := range docs {
		t, err := fromDoc(doc)
		if err != nil {
			return nil, fmt.Errorf("readstore.TripViews.List: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, nil
}

// toDoc maps a domain.Trip into its BSON document shape.
func toDoc(t domain.Trip) tripDoc {
	return tripDoc{
		ID:                 t.ID.String(),
		DriverID:           t.DriverID,
		VehicleID:          t.VehicleID,
		StartLocation:      t.StartLocation,
		EndLocation:        t.EndLocation,
		Route:              t.Route,
		ScheduledStartTime: t.ScheduledStartTime,
		EstimatedEndTime:   t.EstimatedEndTime,
		ActualStartTime:    t.ActualStartTime,
		ActualEndTime:      t.ActualEndTime,
		Status:             string(t.Status),
		TripType:           string(t.TripType),
		DistanceTraveled:   t.DistanceTraveled,
		FuelConsumed:       t.FuelConsumed,
		Notes:              t.Notes,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// fromDoc maps a BSON document back into a domain.Trip.
func fromDoc(doc tripDoc) (domain.Trip, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("parse trip id %q: %w", doc.ID, err)
	}
	return domain.Trip{
		ID:                 id,
		DriverID:           doc.DriverID,
		VehicleID:          doc.VehicleID,
		StartLocation:      doc.StartLocation,
		EndLocation:        doc.EndLocation,
		Route:              doc.Route,
		ScheduledStartTime: doc.ScheduledStartTime,
		EstimatedEndTime:   doc.EstimatedEndTime,
		ActualStartTime:    doc.ActualStartTime,
		ActualEndTime:      doc.ActualEndTime,
		Status:             domain.TripStatus(doc.Status),
		TripType:           domain.TripType(doc.TripType),
		DistanceTraveled:   doc.DistanceTraveled,
		FuelConsumed:       doc.FuelConsumed,
		Notes:              doc.Notes,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}, nil
}

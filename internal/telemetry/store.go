// Package telemetry implements the FleetTrack telemetry sink: an append-only
// sample log with a unary HTTP submission endpoint, a websocket stream with
// per-sample acks, and the HTTP client the trip service uses to notify the
// sink of status changes.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleettrack/fleettrack/internal/domain"
)

// SampleStore defines the operations on the telemetry sample log.
// Handlers depend on this interface so they can be tested without MongoDB.
type SampleStore interface {
	// Append stores one sample. Samples are never deduplicated: the log is
	// at-least-once, and a replayed append is harmless.
	Append(ctx context.Context, sample domain.TelemetrySample) error

	// List returns stored samples matching the filter, newest first.
	List(ctx context.Context, filter domain.SampleFilter) ([]domain.TelemetrySample, error)
}

// sampleDoc is the BSON shape of a stored sample. RecordedAt is the sink's
// receive time, kept separate from the producer-reported Timestamp.
type sampleDoc struct {
	TripID     string    `bson:"trip_id,omitempty"`
	VehicleID  string    `bson:"vehicle_id"`
	Latitude   float64   `bson:"latitude"`
	Longitude  float64   `bson:"longitude"`
	Speed      float64   `bson:"speed"`
	FuelLevel  float64   `bson:"fuel_level"`
	Status     string    `bson:"status"`
	Timestamp  time.Time `bson:"timestamp"`
	RecordedAt time.Time `bson:"recorded_at"`
}

type mongoSampleStore struct {
	samples *mongo.Collection
	now     func() time.Time
}

// NewSampleStore returns a SampleStore backed by the "telemetry" collection
// of the given database.
func NewSampleStore(db *mongo.Database) SampleStore {
	return &mongoSampleStore{
		samples: db.Collection("telemetry"),
		now:     time.Now,
	}
}

func (s *mongoSampleStore) Append(ctx context.Context, sample domain.TelemetrySample) error {
	doc := sampleDoc{
		TripID:     sample.TripID,
		VehicleID:  sample.VehicleID,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Speed:      sample.Speed,
		FuelLevel:  sample.FuelLevel,
		Status:     sample.Status,
		Timestamp:  sample.Timestamp,
		RecordedAt: s.now().UTC(),
	}
	if _, err := s.samples.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("telemetry.SampleStore.Append: %w", err)
	}
	return nil
}

func (s *mongoSampleStore) List(ctx context.Context, filter domain.SampleFilter) ([]domain.TelemetrySample, error) {
	query := bson.M{}
	if filter.VehicleID != "" {
		query["vehicle_id"] = filter.VehicleID
	}
	if filter.TripID != "" {
		query["trip_id"] = filter.TripID
	}

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}})
	cursor, err := s.samples.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("telemetry.SampleStore.List: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []sampleDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("telemetry.SampleStore.List: decode: %w", err)
	}

	samples := make([]domain.TelemetrySample, 0, len(docs))
	for _, doc := range docs {
		samples = append(samples, domain.TelemetrySample{
			TripID:    doc.TripID,
			VehicleID: doc.VehicleID,
			Latitude:  doc.Latitude,
			Longitude: doc.Longitude,
			Speed:     doc.Speed,
			FuelLevel: doc.FuelLevel,
			Status:    doc.Status,
			Timestamp: doc.Timestamp,
		})
	}
	return samples, nil
}

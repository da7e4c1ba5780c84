package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleettrack/fleettrack/internal/domain"
)

// TestTripStatus_CanTransition exercises the whole transition table.
// Scheduled → InProgress → Completed is the happy path; Cancelled is
// reachable from either non-terminal state; terminal states go nowhere.
func TestTripStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.TripStatus
		want     bool
	}{
		{domain.StatusScheduled, domain.StatusInProgress, true},
		{domain.StatusScheduled, domain.StatusCancelled, true},
		{domain.StatusScheduled, domain.StatusCompleted, false},
		{domain.StatusInProgress, domain.StatusCompleted, true},
		{domain.StatusInProgress, domain.StatusCancelled, true},
		{domain.StatusInProgress, domain.StatusScheduled, false},
		{domain.StatusCompleted, domain.StatusScheduled, false},
		{domain.StatusCompleted, domain.StatusInProgress, false},
		{domain.StatusCompleted, domain.StatusCancelled, false},
		{domain.StatusCancelled, domain.StatusScheduled, false},
		{domain.StatusCancelled, domain.StatusInProgress, false},
		{domain.StatusCancelled, domain.StatusCompleted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to),
			"%s → %s", tc.from, tc.to)
	}
}

func TestTripStatus_Valid(t *testing.T) {
	assert.True(t, domain.StatusScheduled.Valid())
	assert.True(t, domain.StatusCancelled.Valid())
	assert.False(t, domain.TripStatus("Paused").Valid())
	assert.False(t, domain.TripStatus("").Valid())
}

func TestTripType_Valid(t *testing.T) {
	assert.True(t, domain.TypeEmergency.Valid())
	assert.False(t, domain.TripType("Leisure").Valid())
}

// TestTripPatch_Apply verifies merge semantics: nil fields leave the stored
// value untouched, non-nil fields overwrite it.
func TestTripPatch_Apply(t *testing.T) {
	trip := domain.Trip{
		Route:  "A1 northbound",
		Status: domain.StatusScheduled,
		Notes:  "original",
	}

	route := "A2 southbound"
	dist := 42.5
	patched := domain.TripPatch{Route: &route, DistanceTraveled: &dist}.Apply(trip)

	assert.Equal(t, "A2 southbound", patched.Route)
	assert.Equal(t, 42.5, *patched.DistanceTraveled)
	// Absent fields are untouched.
	assert.Equal(t, domain.StatusScheduled, patched.Status)
	assert.Equal(t, "original", patched.Notes)
	assert.Nil(t, patched.FuelConsumed)
}

func TestTripPatch_Apply_Empty(t *testing.T) {
	trip := domain.Trip{Route: "unchanged", Status: domain.StatusInProgress}

	patched := domain.TripPatch{}.Apply(trip)

	assert.Equal(t, trip, patched)
}

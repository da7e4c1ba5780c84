package telemetry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleettrack/fleettrack/internal/domain"
	"github.com/fleettrack/fleettrack/internal/telemetry"
)

func TestClient_NotifyTripStatus(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/telemetry", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"message":"telemetry data received"}`))
	}))
	defer srv.Close()

	c := telemetry.NewClient(srv.URL)
	err := c.NotifyTripStatus(context.Background(), domain.TelemetrySample{
		TripID:    "trip-1",
		VehicleID: "vehicle-7",
		Status:    "InProgress",
	})
	require.NoError(t, err)

	// Coordinates cross the wire as strings; a status notification carries
	// the zero position.
	assert.Equal(t, "0", got["latitude"])
	assert.Equal(t, "0", got["longitude"])
	assert.Equal(t, "vehicle-7", got["vehicleId"])
	assert.Equal(t, "InProgress", got["status"])
}

func TestClient_NotifyTripStatus_SinkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := telemetry.NewClient(srv.URL)
	err := c.NotifyTripStatus(context.Background(), domain.TelemetrySample{VehicleID: "vehicle-7"})
	assert.Error(t, err)
}

func TestClient_NotifyTripStatus_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := telemetry.NewClient(srv.URL)
	err := c.NotifyTripStatus(ctx, domain.TelemetrySample{VehicleID: "vehicle-7"})
	assert.Error(t, err)
}

func TestClient_NotifyTripStatus_SinkUnreachable(t *testing.T) {
	c := telemetry.NewClient("http://127.0.0.1:1")
	err := c.NotifyTripStatus(context.Background(), domain.TelemetrySample{VehicleID: "vehicle-7"})
	assert.Error(t, err)
}

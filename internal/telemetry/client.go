package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fleettrack/fleettrack/internal/domain"
)

// Client submits samples to the telemetry sink over its unary HTTP endpoint.
// The trip service uses it for fire-and-forget status notifications; callers
// own the timeout via the context they pass.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the sink at baseURL (no trailing slash).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// NotifyTripStatus submits one sample to the sink. It reports an error for
// transport failures and non-2xx replies; callers decide whether that error
// matters.
func (c *Client) NotifyTripStatus(ctx context.Context, sample domain.TelemetrySample) error {
	payload := samplePayload{
		TripID:    sample.TripID,
		VehicleID: sample.VehicleID,
		Latitude:  strconv.FormatFloat(sample.Latitude, 'f', -1, 64),
		Longitude: strconv.FormatFloat(sample.Longitude, 'f', -1, 64),
		Speed:     sample.Speed,
		FuelLevel: sample.FuelLevel,
		Status:    sample.Status,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telemetry.Client.NotifyTripStatus: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/telemetry", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telemetry.Client.NotifyTripStatus: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry.Client.NotifyTripStatus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("telemetry.Client.NotifyTripStatus: sink returned %d", resp.StatusCode)
	}
	return nil
}

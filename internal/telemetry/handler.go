package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/fleettrack/fleettrack/internal/domain"
)

const (
	// pongWait bounds how long the stream read loop waits for traffic
	// (samples or pong frames) before giving up on the producer.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// samplePayload is the wire shape producers submit. Latitude and longitude
// arrive as strings because embedded GPS units report them that way; values
// that are absent or unparseable coerce to 0.0 rather than rejecting the
// sample, so a flaky GPS never drops speed and fuel readings.
type samplePayload struct {
	TripID    string  `json:"tripId"`
	VehicleID string  `json:"vehicleId"`
	Latitude  string  `json:"latitude"`
	Longitude string  `json:"longitude"`
	Speed     float64 `json:"speed"`
	FuelLevel float64 `json:"fuelLevel"`
	Status    string  `json:"status"`
}

// submitResponse is the unary submission reply.
type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// streamAck is the per-sample websocket acknowledgement.
type streamAck struct {
	Message string `json:"message"`
}

// SinkServer implements the telemetry sink endpoints.
type SinkServer struct {
	store    SampleStore
	log      *slog.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewSinkServer constructs the sink with its sample store.
func NewSinkServer(store SampleStore, log *slog.Logger) *SinkServer {
	return &SinkServer{
		store: store,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Routes registers the sink endpoints on the given router.
func (s *SinkServer) Routes(r chi.Router) {
	r.Post("/telemetry", s.SubmitSample)
	r.Get("/telemetry", s.ListSamples)
	r.Get("/telemetry/stream", s.StreamSamples)
}

// SubmitSample handles POST /telemetry: a single unary sample submission.
func (s *SinkServer) SubmitSample(w http.ResponseWriter, r *http.Request) {
	var payload samplePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeJSON(w, http.StatusBadRequest, submitResponse{
			Success: false, Message: "invalid request body",
		})
		return
	}

	if err := s.store.Append(r.Context(), s.toSample(payload)); err != nil {
		s.log.Error("append sample", "error", err, "vehicle_id", payload.VehicleID)
		s.writeJSON(w, http.StatusInternalServerError, submitResponse{
			Success: false, Message: "failed to store telemetry data",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, submitResponse{
		Success: true, Message: "telemetry data received",
	})
}

// ListSamples handles GET /telemetry with optional vehicleId and tripId
// filters, newest first.
func (s *SinkServer) ListSamples(w http.ResponseWriter, r *http.Request) {
	filter := domain.SampleFilter{
		VehicleID: r.URL.Query().Get("vehicleId"),
		TripID:    r.URL.Query().Get("tripId"),
	}

	samples, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.log.Error("list samples", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, submitResponse{
			Success: false, Message: "failed to read telemetry data",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, samples)
}

// StreamSamples handles GET /telemetry/stream. Each inbound JSON sample is
// appended and acknowledged with exactly one ack frame before the next
// sample is read, so a producer that waits for acks has at most one sample
// outstanding. A persistence failure is reported in that sample's ack and
// the stream continues.
func (s *SinkServer) StreamSamples(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(s.now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(s.now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.pingLoop(conn, stop)

	for {
		var payload samplePayload
		if err := conn.ReadJSON(&payload); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("stream read", "error", err)
			}
			return
		}
		conn.SetReadDeadline(s.now().Add(pongWait))

		ack := streamAck{Message: "telemetry data received"}
		if err := s.store.Append(r.Context(), s.toSample(payload)); err != nil {
			s.log.Error("append sample", "error", err, "vehicle_id", payload.VehicleID)
			ack.Message = "failed to store telemetry data"
		}

		if err := conn.WriteJSON(ack); err != nil {
			s.log.Warn("stream ack", "error", err)
			return
		}
	}
}

// pingLoop keeps the connection alive until the read loop returns.
func (s *SinkServer) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, s.now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

func (s *SinkServer) toSample(payload samplePayload) domain.TelemetrySample {
	return domain.TelemetrySample{
		TripID:    payload.TripID,
		VehicleID: payload.VehicleID,
		Latitude:  parseCoord(payload.Latitude),
		Longitude: parseCoord(payload.Longitude),
		Speed:     payload.Speed,
		FuelLevel: payload.FuelLevel,
		Status:    payload.Status,
		Timestamp: s.now().UTC(),
	}
}

// parseCoord coerces a string coordinate to a float64, mapping absent or
// unparseable values to 0.0.
func parseCoord(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func (s *SinkServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

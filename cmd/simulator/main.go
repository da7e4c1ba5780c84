// Package main is a telemetry producer that exercises the sink's websocket
// stream: it connects, sends jittered GPS samples for a handful of vehicles,
// and waits for each ack before sending the next sample.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type samplePayload struct {
	TripID    string  `json:"tripId,omitempty"`
	VehicleID string  `json:"vehicleId"`
	Latitude  string  `json:"latitude"`
	Longitude string  `json:"longitude"`
	Speed     float64 `json:"speed"`
	FuelLevel float64 `json:"fuelLevel"`
	Status    string  `json:"status"`
}

type streamAck struct {
	Message string `json:"message"`
}

type position struct {
	lat, lon float64
}

// Depot starting points for simulated vehicles.
var depots = []position{
	{52.3791, 4.8994},  // Amsterdam
	{51.9244, 4.4777},  // Rotterdam
	{52.0907, 5.1214},  // Utrecht
	{51.4416, 5.4697},  // Eindhoven
	{53.2194, 6.5665},  // Groningen
}

func main() {
	sinkURL := flag.String("sink", "ws://localhost:8081/telemetry/stream", "sink stream URL")
	vehicles := flag.Int("vehicles", 3, "number of simulated vehicles")
	interval := flag.Duration("interval", 2*time.Second, "delay between samples per vehicle")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	conn, _, err := websocket.DefaultDialer.Dial(*sinkURL, nil)
	if err != nil {
		logger.Error("dial sink", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("connected", "sink", *sinkURL, "vehicles", *vehicles)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	positions := make([]position, *vehicles)
	fuel := make([]float64, *vehicles)
	for i := range positions {
		positions[i] = depots[i%len(depots)]
		fuel[i] = 60 + rand.Float64()*40
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			logger.Info("stopping")
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			for i := range positions {
				positions[i] = drift(positions[i])
				fuel[i] = math.Max(0, fuel[i]-rand.Float64()*0.5)

				payload := samplePayload{
					VehicleID: fmt.Sprintf("vehicle-%d", i+1),
					Latitude:  strconv.FormatFloat(positions[i].lat, 'f', 6, 64),
					Longitude: strconv.FormatFloat(positions[i].lon, 'f', 6, 64),
					Speed:     30 + rand.Float64()*60,
					FuelLevel: fuel[i],
					Status:    "InProgress",
				}

				if err := conn.WriteJSON(payload); err != nil {
					logger.Error("send sample", "error", err)
					os.Exit(1)
				}

				// One sample outstanding at a time: wait for the ack
				// before sending the next.
				var ack streamAck
				if err := conn.ReadJSON(&ack); err != nil {
					logger.Error("read ack", "error", err)
					os.Exit(1)
				}
				logger.Info("sample acked",
					"vehicle_id", payload.VehicleID, "ack", ack.Message)
			}
		}
	}
}

// drift moves a position a few hundred meters in a random direction.
func drift(p position) position {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(p.lat*math.Pi/180)
	meters := 100 + rand.Float64()*400
	angle := rand.Float64() * 2 * math.Pi
	return position{
		lat: p.lat + meters*math.Sin(angle)/latMetersPerDeg,
		lon: p.lon + meters*math.Cos(angle)/lonMetersPerDeg,
	}
}

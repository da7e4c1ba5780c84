// Package handler implements the HTTP handlers for the FleetTrack trip API.
// Handlers are methods on Server, split into domain-specific files
// (health.go, trip.go) that all share the same Server struct.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fleettrack/fleettrack/internal/domain"
)

// TripServicer defines the business operations the trip handler depends on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the service layer or any store.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip, idempotencyKey string) (domain.Trip, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	Start(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	Complete(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	List(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error)
}

// Server implements the trip API endpoints.
type Server struct {
	trips    TripServicer
	validate *validator.Validate
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripServicer, log *slog.Logger) *Server {
	return &Server{
		trips:    trips,
		validate: validator.New(),
		log:      log,
	}
}

// Routes registers the trip endpoints on the given router. Auth middleware
// is applied by the caller so tests can exercise handlers unauthenticated.
// Any mutationGuard middleware wraps only the trip-mutating endpoints;
// reads stay on the caller's outer chain.
func (s *Server) Routes(r chi.Router, mutationGuard ...func(http.Handler) http.Handler) {
	r.Route("/api/trips", func(r chi.Router) {
		r.Get("/", s.ListTrips)
		r.Get("/{id}", s.GetTrip)

		r.Group(func(r chi.Router) {
			r.Use(mutationGuard...)
			r.Post("/", s.CreateTrip)
			r.Patch("/{id}", s.UpdateTrip)
			r.Post("/{id}/start", s.StartTrip)
			r.Post("/{id}/complete", s.CompleteTrip)
		})
	})
}

// writeJSON serializes v as the response body with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

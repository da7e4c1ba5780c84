package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fleettrack/fleettrack/internal/domain"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standard error body with the given status.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// writeServiceError maps a service-layer error to its HTTP response.
// Unrecognized errors become 500 with a generic body; the detail is logged,
// never leaked to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		s.writeError(w, http.StatusBadRequest, "validation_error", unwrapMessage(err, "validation error: "))
	case errors.Is(err, domain.ErrDuplicateRequest):
		s.writeError(w, http.StatusConflict, "duplicate_request", "idempotency key already used")
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", "trip not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		s.writeError(w, http.StatusBadRequest, "invalid_state_transition", fromMarker(err, "invalid state transition"))
	default:
		s.log.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel
// error, e.g. "service.TripService.Create: validation error: driverId is
// required" → "driverId is required".
func unwrapMessage(err error, marker string) string {
	msg := err.Error()
	if i := strings.Index(msg, marker); i >= 0 && i+len(marker) < len(msg) {
		return msg[i+len(marker):]
	}
	return msg
}

// fromMarker strips the layer prefixes but keeps the marker itself,
// e.g. "service.TripService.Start: invalid state transition: InProgress →
// Completed" → "invalid state transition: InProgress → Completed".
func fromMarker(err error, marker string) string {
	msg := err.Error()
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i:]
	}
	return msg
}

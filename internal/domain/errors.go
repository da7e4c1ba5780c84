package domain

import "errors"

// ErrNotFound is returned by repo, readstore, and service functions when the
// requested trip does not exist. Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, unknown trip type).
// Handlers should map this to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrDuplicateRequest is returned when an Idempotency-Key has already been
// consumed and its window has not yet expired. The original request's side
// effects stand; no new trip is created. Handlers should map this to HTTP 409.
var ErrDuplicateRequest = errors.New("duplicate request")

// ErrInvalidTransition is returned when a status change violates the trip
// state machine (e.g. starting a trip that is already in progress). The
// stored status is left unchanged. Handlers should map this to HTTP 400.
var ErrInvalidTransition = errors.New("invalid state transition")

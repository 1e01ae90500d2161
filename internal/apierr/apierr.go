// Package apierr defines the typed error kinds the control plane and
// ingestion pipeline use, and the HTTP status each surfaces as.
package apierr

import (
	"errors"
	"net/http"
)

// Kind is one of the error kinds named in the error handling design.
type Kind string

const (
	Validation      Kind = "validation_error"
	Conflict        Kind = "conflict"
	NotFound        Kind = "not_found"
	WrongSourceType Kind = "wrong_source_type"
	NoFrameYet      Kind = "no_frame_yet"
	BadFrame        Kind = "bad_frame"
)

// Error pairs a Kind with a human-readable message. Ingest-path errors
// (decode_error, source_error, bus_unavailable) are never wrapped in an
// Error; they are counted and logged, never returned to a caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Status maps a Kind to the HTTP status code the control plane responds
// with.
func Status(kind Kind) int {
	switch kind {
	case Validation, BadFrame:
		return http.StatusBadRequest
	case Conflict, WrongSourceType, NoFrameYet:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// As reports whether err is (or wraps) an *Error, returning it if so.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

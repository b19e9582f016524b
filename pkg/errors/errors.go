// Package errors provides the gateway's one error-construction path at the
// HTTP boundary: a typed taxonomy kind (entity.ErrorKind), the status it
// maps to, a message, and an optional cause chain for zap logging.
package errors

import (
	"errors"
	"fmt"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/domain/service"
)

// AppError is the application-level error every HTTP handler constructs or
// converts to before responding, so the response body and the log line
// both come from one place.
type AppError struct {
	Kind    entity.ErrorKind
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New constructs an AppError for kind, deriving its HTTP status from the
// canonical table in service.HTTPStatusForKind.
func New(kind entity.ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Status: service.HTTPStatusForKind(kind), Message: message}
}

// Wrap constructs an AppError for kind around an underlying cause.
func Wrap(err error, kind entity.ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Status: service.HTTPStatusForKind(kind), Message: message, Err: err}
}

// FromError converts any error into an AppError: entity.KindError carries
// its kind through directly; anything else becomes an opaque Upstream-kind
// error wrapping the original.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var ke *entity.KindError
	if errors.As(err, &ke) {
		return Wrap(err, ke.Kind, ke.Detail)
	}
	return Wrap(err, entity.ErrUpstream, err.Error())
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind entity.ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness. Details carries
// optional structured context for the client, such as the clashing bookings
// behind a conflict.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors. Validation errors are caller-fixable; conflict errors
// mean the request clashes with current state and may succeed after the
// caller reconciles.
var (
	ErrInvalidCredentials   = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount      = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound             = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden            = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized         = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation           = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal             = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrGenderMismatch       = New("GENDER_MISMATCH", http.StatusBadRequest, "gender does not match")
	ErrCapacityExceeded     = New("CAPACITY_EXCEEDED", http.StatusBadRequest, "room capacity exceeded")
	ErrInvalidRange         = New("INVALID_RANGE", http.StatusBadRequest, "invalid date range")
	ErrUnknownStudent       = New("UNKNOWN_STUDENT", http.StatusBadRequest, "student is not part of this report")
	ErrConflictingBooking   = New("CONFLICTING_BOOKING", http.StatusConflict, "supervisor already booked on this date")
	ErrDuplicateShift       = New("DUPLICATE_SHIFT", http.StatusConflict, "report already exists for this shift")
	ErrNotEditable          = New("NOT_EDITABLE", http.StatusConflict, "report is no longer editable")
	ErrIncompleteAttendance = New("INCOMPLETE_ATTENDANCE", http.StatusConflict, "attendance marks are incomplete")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of the error carrying structured details.
func (e *Error) WithDetails(details interface{}) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Details = details
	return &clone
}

package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("user already exists")
	// ErrInvalidCredentials is returned for both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned when a session token is missing, expired, malformed or revoked.
	ErrInvalidToken = errors.New("token is not valid")
	// ErrForbidden is returned when the requester may not touch the resource.
	ErrForbidden = errors.New("access denied")
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("not found")
	// ErrSlotConflict is returned when the doctor already has an active visit at that time.
	ErrSlotConflict = errors.New("doctor is not available at this time")
	// ErrInvalidPaymentStatus is returned for payment statuses outside paid, unpaid and pending.
	ErrInvalidPaymentStatus = errors.New("invalid payment status. Must be: paid, unpaid, or pending")
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Status maps a (possibly wrapped) domain error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrInvalidPaymentStatus):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Response builds the body for err. Internal errors only carry their raw
// text when expose is set.
func Response(err error, expose bool) ErrorResponse {
	if Status(err) != http.StatusInternalServerError {
		return ErrorResponse{Message: err.Error()}
	}
	resp := ErrorResponse{Message: "Server error"}
	if expose {
		resp.Error = err.Error()
	}
	return resp
}

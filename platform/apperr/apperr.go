// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer
// maps them to appropriate HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindConflict indicates a conflict with existing state (e.g., duplicate).
	KindConflict
	// KindForbidden indicates the action is not allowed for the user.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
	// KindUnavailable indicates the request cannot be served right now
	// (e.g., nobody is available to take the work).
	KindUnavailable
)

// Code is a stable machine-readable identifier for engine failures.
type Code string

const (
	CodeNoEligibleAgents        Code = "NO_ELIGIBLE_AGENTS"
	CodeInvalidPredecessor      Code = "INVALID_PREDECESSOR"
	CodeCannotRevertStatus      Code = "CANNOT_REVERT_STATUS"
	CodeShipmentDetailsRequired Code = "SHIPMENT_DETAILS_REQUIRED"
	CodeDuplicateIdentifier     Code = "DUPLICATE_IDENTIFIER"
	CodeRecordNotFound          Code = "RECORD_NOT_FOUND"
	CodeInconsistent            Code = "INCONSISTENT"
	CodeStaleState              Code = "STALE_STATE"
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Code    Code   // Engine failure code (optional)
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
	Details any    // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation on the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets additional response details on the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithCode sets the engine failure code on the error.
func (e *Error) WithCode(code Code) *Error {
	e.Code = code
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message).WithCode(CodeRecordNotFound)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict creates a conflict error (e.g., duplicate resource).
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// Engine failures. Messages are shown to the end user verbatim.

// NoEligibleAgents reports an empty allocation pool.
func NoEligibleAgents(pool string) *Error {
	return New(KindUnavailable, fmt.Sprintf("no agents available in pool %q", pool)).WithCode(CodeNoEligibleAgents)
}

// InvalidPredecessor reports a transition requested from the wrong current status.
func InvalidPredecessor(current, requested string) *Error {
	return New(KindConflict, fmt.Sprintf("cannot move from %s to %s, pick a different transition", current, requested)).
		WithCode(CodeInvalidPredecessor)
}

// CannotRevertStatus reports a backwards transition on a forward-only workflow.
func CannotRevertStatus(current, requested string) *Error {
	return New(KindConflict, fmt.Sprintf("cannot revert status from %s to %s", current, requested)).
		WithCode(CodeCannotRevertStatus)
}

// ShipmentDetailsRequired reports a shipment status requested without shipping details.
func ShipmentDetailsRequired(message string) *Error {
	return New(KindValidation, message).WithCode(CodeShipmentDetailsRequired)
}

// DuplicateIdentifier reports an exhausted identifier search.
func DuplicateIdentifier(message string) *Error {
	return New(KindConflict, message).WithCode(CodeDuplicateIdentifier)
}

// Inconsistent reports records that disagree with each other, found after the fact.
func Inconsistent(message string) *Error {
	return New(KindInternal, message).WithCode(CodeInconsistent)
}

// StaleState reports a lost conditional update; the caller should reload and retry.
func StaleState(message string) *Error {
	return New(KindConflict, message).WithCode(CodeStaleState)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetCode extracts the engine failure code from an error, if any.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// HasCode checks if err is an *Error carrying the given code.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

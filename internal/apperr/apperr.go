// Package apperr defines the failure categories shared by repositories,
// services and the transport layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericMessage is what callers see for every failure that is not their fault.
const GenericMessage = "Something Went Wrong! Please Try Again Later."

// Failure categories. Match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrBadRequest         = errors.New("bad request")
	ErrTooLarge           = errors.New("payload too large")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPoolExhausted      = errors.New("connection pool exhausted")
	ErrConnectFailure     = errors.New("store connection failure")
	ErrQuery              = errors.New("query error")
	ErrFilesystem         = errors.New("filesystem error")
)

// Error is a categorized failure carrying the message a caller may see.
type Error struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Status: http.StatusNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: ErrConflict, Status: http.StatusConflict, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Kind: ErrBadRequest, Status: http.StatusBadRequest, Message: message}
}

func TooLarge(message string) *Error {
	return &Error{Kind: ErrTooLarge, Status: http.StatusRequestEntityTooLarge, Message: message}
}

func InvalidCredentials(message string) *Error {
	return &Error{Kind: ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: message}
}

// Query wraps an error returned by the store for a rejected statement.
func Query(err error) *Error {
	return internal(ErrQuery, "query failed", err)
}

// Filesystem wraps a failed photo placement.
func Filesystem(err error) *Error {
	return internal(ErrFilesystem, "filesystem operation failed", err)
}

func PoolExhausted(err error) *Error {
	return internal(ErrPoolExhausted, "no connection available", err)
}

func ConnectFailure(err error) *Error {
	return internal(ErrConnectFailure, "unable to reach store", err)
}

func internal(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// Public returns the status and message that may be shown to a caller.
// Anything that is not a client-side category collapses to GenericMessage.
func Public(err error) (int, string) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Status > 0 && appErr.Status < http.StatusInternalServerError {
		return appErr.Status, appErr.Message
	}
	return http.StatusInternalServerError, GenericMessage
}

// IsClientError reports whether err is a caller-visible category.
func IsClientError(err error) bool {
	status, _ := Public(err)
	return status < http.StatusInternalServerError
}

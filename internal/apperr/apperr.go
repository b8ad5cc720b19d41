// Package apperr defines the error type services return to handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, msg string) *Error {
	return &Error{Status: status, Message: msg}
}

func NotFound(msg string) *Error   { return New(http.StatusNotFound, msg) }
func Forbidden(msg string) *Error  { return New(http.StatusForbidden, msg) }
func BadRequest(msg string) *Error { return New(http.StatusBadRequest, msg) }
func Conflict(msg string) *Error   { return New(http.StatusConflict, msg) }

func BadRequestf(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// Internal hides the cause from clients but keeps it for logging.
func Internal(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// StatusOf returns the HTTP status and client message for err.
// Unknown errors map to 500.
func StatusOf(err error) (int, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Status, e.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

func IsNotFound(err error) bool {
	status, _ := StatusOf(err)
	return status == http.StatusNotFound
}

// Package apperr is the error taxonomy shared by services and handlers.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	CodeAlreadyPaid        = "ALREADY_PAID"
	CodeRateLimited        = "RATE_LIMITED"
	CodeDailyLimitExceeded = "DAILY_LIMIT_EXCEEDED"
	CodeNoRecipients       = "NO_RECIPIENTS"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeInvalidFileFormat  = "INVALID_FILE_FORMAT"
	CodeNoFile             = "NO_FILE"
	CodeGateway            = "PAYMENT_GATEWAY_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error carries the HTTP status and machine-readable code for a failure.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// With attaches extra response fields (e.g. "remaining" for quota errors).
func (e *Error) With(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	if code == "" {
		code = CodeValidation
	}
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(code, message string) *Error {
	if code == "" {
		code = CodeConflict
	}
	return New(http.StatusConflict, code, message)
}

func TooMany(code, message string) *Error {
	return New(http.StatusTooManyRequests, code, message)
}

// Internal wraps an unexpected failure; the cause is kept for logging.
func Internal(err error, message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message, Err: err}
}

// As extracts an *Error from err, converting anything else into an internal error.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err, "internal server error")
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

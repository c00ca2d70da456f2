package apierror

import (
	"fmt"
	"net/http"
)

// Code is the stable machine-readable error type in API responses.
type Code string

// Code constants grouped by failure class.
const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeStorageExceeded Code = "STORAGE_LIMIT_EXCEEDED"

	CodeTokenExpired    Code = "TOKEN_EXPIRED"
	CodeInvalidToken    Code = "INVALID_TOKEN"
	CodeMissingToken    Code = "MISSING_TOKEN"
	CodeAccountInactive Code = "ACCOUNT_INACTIVE"
	CodeBadCredentials  Code = "INVALID_CREDENTIALS"

	CodeForbidden Code = "AUTHORIZATION_ERROR"
	CodeNotFound  Code = "NOT_FOUND"
	CodeConflict  Code = "CONFLICT"
	CodeRateLimit Code = "RATE_LIMIT_EXCEEDED"
	CodeServer    Code = "SERVER_ERROR"
)

// Error is a typed API error carrying its HTTP status and response code.
type Error struct {
	Code       Code   // Machine-readable error type.
	Message    string // Human-readable message.
	Status     int    // HTTP status code.
	RetryAfter int    // Seconds until retry, only set for rate limits.
	Err        error  // Wrapped cause, never serialized.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Validation builds a 400 validation error.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

// StorageExceeded builds the distinct 400 quota error body.
func StorageExceeded() *Error {
	return &Error{Code: CodeStorageExceeded, Message: "storage limit exceeded", Status: http.StatusBadRequest}
}

// Authentication builds a 401 error with the given subtype.
func Authentication(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: http.StatusUnauthorized}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message, Status: http.StatusForbidden}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message, Status: http.StatusNotFound}
}

// Conflict builds a 409 error.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

// RateLimited builds a 429 error with a retry hint in seconds.
func RateLimited(retryAfter int) *Error {
	return &Error{
		Code:       CodeRateLimit,
		Message:    "too many requests",
		Status:     http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

// Server wraps an unexpected failure as a 500 error.
func Server(message string, err error) *Error {
	return &Error{Code: CodeServer, Message: message, Status: http.StatusInternalServerError, Err: err}
}

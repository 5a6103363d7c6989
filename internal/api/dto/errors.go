package dto

import (
	"fmt"
	"strings"
)

// APIError is the body of every non-2xx response. Param names the query or
// path parameter that was rejected, when there is one.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// Error codes
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInternalError = "internal_error"
	ErrCodeInvalidStatus = "invalid_status"
	ErrCodeInvalidDate   = "invalid_date"
	ErrCodeUnavailable   = "ledger_unavailable"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

// NotFoundError reports a missing transaction or match run.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError hides storage failures from the client; the cause is logged.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// InvalidStatusError rejects a status filter the ledger does not know.
func InvalidStatusError(param, got string, allowed ...string) APIError {
	return APIError{
		Code:    ErrCodeInvalidStatus,
		Message: fmt.Sprintf("%s %q must be one of %s", param, got, strings.Join(allowed, ", ")),
		Param:   param,
	}
}

// InvalidDateError rejects a date parameter that is not a calendar date.
func InvalidDateError(param, got string) APIError {
	return APIError{
		Code:    ErrCodeInvalidDate,
		Message: fmt.Sprintf("%s %q must be YYYY-MM-DD", param, got),
		Param:   param,
	}
}

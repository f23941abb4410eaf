package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Input and validation
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	CodeBadRequest       ErrorCode = "BAD_REQUEST"

	// Remote catalog outcomes
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeRemoteError      ErrorCode = "REMOTE_ERROR"
	CodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"

	// Authentication
	CodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodePasswordMismatch   ErrorCode = "PASSWORD_MISMATCH"
	CodeWeakPassword       ErrorCode = "WEAK_PASSWORD"
	CodeUsernameTaken      ErrorCode = "USERNAME_TAKEN"
	CodeEmailTaken         ErrorCode = "EMAIL_TAKEN"

	// Infrastructure
	CodeRateLimited         ErrorCode = "RATE_LIMITED"
	CodeIdempotencyRequired ErrorCode = "IDEMPOTENCY_REQUIRED"
	CodeIdempotencyConflict ErrorCode = "IDEMPOTENCY_CONFLICT"
	CodeInternalError       ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusMap maps error codes to HTTP status codes
var HTTPStatusMap = map[ErrorCode]int{
	CodeValidationError:     http.StatusBadRequest,
	CodeMissingParameter:    http.StatusBadRequest,
	CodeBadRequest:          http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeRemoteError:         http.StatusBadGateway,
	CodeTransportFailure:    http.StatusGatewayTimeout,
	CodeUnauthenticated:     http.StatusUnauthorized,
	CodeInvalidCredentials:  http.StatusBadRequest,
	CodePasswordMismatch:    http.StatusBadRequest,
	CodeWeakPassword:        http.StatusBadRequest,
	CodeUsernameTaken:       http.StatusBadRequest,
	CodeEmailTaken:          http.StatusBadRequest,
	CodeRateLimited:         http.StatusTooManyRequests,
	CodeIdempotencyRequired: http.StatusBadRequest,
	CodeIdempotencyConflict: http.StatusConflict,
	CodeInternalError:       http.StatusInternalServerError,
}

// ErrorResponse represents the standardized error response structure
type ErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
		TraceID string    `json:"trace_id,omitempty"`
	} `json:"error"`
}

// AppError represents an application error with code and message.
// Status carries the upstream HTTP status for REMOTE_ERROR outcomes.
type AppError struct {
	Code    ErrorCode
	Message string
	Status  int
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorf creates a new AppError with formatted message
func NewAppErrorf(code ErrorCode, cause error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// NewRemoteError creates a REMOTE_ERROR carrying the upstream status code
func NewRemoteError(status int, message string) *AppError {
	return &AppError{
		Code:    CodeRemoteError,
		Message: message,
		Status:  status,
	}
}

// ToErrorResponse converts AppError to ErrorResponse
func (e *AppError) ToErrorResponse(traceID string) ErrorResponse {
	resp := ErrorResponse{}
	resp.Error.Code = e.Code
	resp.Error.Message = e.Message
	resp.Error.TraceID = traceID
	return resp
}

// HTTPStatus returns the HTTP status code for this error
func (e *AppError) HTTPStatus() int {
	if status, exists := HTTPStatusMap[e.Code]; exists {
		return status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the ErrorCode of err, or INTERNAL_ERROR for plain errors
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// Is reports whether err carries the given code
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return &AppError{Code: appErr.Code, Message: message, Status: appErr.Status, Cause: err}
	}
	return NewAppError(CodeInternalError, message, err)
}

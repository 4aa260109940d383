// Package errors provides custom error types for the ledgerlens API.
// All service and ingestion errors should use AppError so responses carry a
// stable error code and never leak internal details to clients.
package errors

import (
	stderrors "errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrValidation     = &AppError{Code: "VALIDATION_ERROR", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Ingestion pipeline errors. ParseError and NormalizeError are recoverable at
// row level; they only fail a statement when no rows survive at all.
var (
	ErrParse             = &AppError{Code: "PARSE_ERROR", Message: "Statement file could not be parsed", StatusCode: http.StatusUnprocessableEntity}
	ErrSchemaMismatch    = &AppError{Code: "PARSE_ERROR", Message: "File schema does not match the expected format", StatusCode: http.StatusUnprocessableEntity}
	ErrUnsupportedLayout = &AppError{Code: "PARSE_ERROR", Message: "No transaction block recognized in file layout", StatusCode: http.StatusUnprocessableEntity}
	ErrNormalize         = &AppError{Code: "NORMALIZE_ERROR", Message: "Row could not be normalized", StatusCode: http.StatusUnprocessableEntity}
	ErrDuplicateConflict = &AppError{Code: "DUPLICATE_CONFLICT", Message: "Cross-source transaction counts diverge", StatusCode: http.StatusConflict}
	ErrDuplicateStatement = &AppError{Code: "DUPLICATE_CONFLICT", Message: "A statement for this account and period already exists", StatusCode: http.StatusConflict}
)

// Orchestration errors.
var (
	ErrConcurrencyConflict = &AppError{Code: "CONCURRENCY_CONFLICT", Message: "Statement is already being processed", StatusCode: http.StatusConflict}
	ErrTimeout             = &AppError{Code: "TIMEOUT", Message: "Operation exceeded its time bound", StatusCode: http.StatusGatewayTimeout}
	ErrStorage             = &AppError{Code: "STORAGE_ERROR", Message: "Blob storage operation failed", StatusCode: http.StatusBadGateway}
	ErrInvalidTransition   = &AppError{Code: "VALIDATION_ERROR", Message: "Invalid statement status transition", StatusCode: http.StatusConflict}
)

// Entity lookup errors.
var (
	ErrStatementNotFound   = &AppError{Code: "NOT_FOUND", Message: "Statement not found", StatusCode: http.StatusNotFound}
	ErrTransactionNotFound = &AppError{Code: "NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrAccountNotFound     = &AppError{Code: "NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrInstitutionNotFound = &AppError{Code: "NOT_FOUND", Message: "Institution not found", StatusCode: http.StatusNotFound}
)

// IsRetryable reports whether the error represents a transient infrastructure
// failure the orchestrator may retry with backoff.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == ErrStorage.Code || appErr.Code == ErrTimeout.Code
}

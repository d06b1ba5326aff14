// Package errors provides error code definitions shared with the desktop shell.
package errors

import "fmt"

// ErrorCode represents a unique error code surfaced to the UI.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Configuration errors
	ErrConfigInvalid  ErrorCode = "CONFIG_INVALID"
	ErrConfigNotSaved ErrorCode = "CONFIG_NOT_SAVED"

	// Database errors
	ErrDatabase  ErrorCode = "DATABASE_ERROR"
	ErrMigration ErrorCode = "MIGRATION_FAILED"

	// Remote ledger errors
	ErrSheetConnectFailed ErrorCode = "SHEET_CONNECT_FAILED"
	ErrSheetAppendFailed  ErrorCode = "SHEET_APPEND_FAILED"
	ErrSheetAuthFailed    ErrorCode = "SHEET_AUTH_FAILED"

	// Delivery errors
	ErrOfflineStoreFailed ErrorCode = "OFFLINE_STORE_FAILED"
	ErrDeliveryTimeout    ErrorCode = "DELIVERY_TIMEOUT"
	ErrFlushInProgress    ErrorCode = "FLUSH_IN_PROGRESS"

	// Roster errors
	ErrRosterInvalid  ErrorCode = "ROSTER_INVALID"
	ErrPayloadInvalid ErrorCode = "PAYLOAD_INVALID"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the error code of err, or ErrInternal for plain errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternal
}

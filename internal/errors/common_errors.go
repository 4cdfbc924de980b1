package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeIngest     ErrorType = "INGEST"
	ErrTypeSchema     ErrorType = "SCHEMA"
	ErrTypeEmptyInput ErrorType = "EMPTY_INPUT"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeConfig     ErrorType = "CONFIG"
)

// EmptyInputMessage is shown when no sheet of any upload contained data
const EmptyInputMessage = "No data to merge. All sheets were empty."

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewIngestError reports a workbook that could not be read into sheets
func NewIngestError(file string, cause error) *AppError {
	return NewAppError(ErrTypeIngest, fmt.Sprintf("cannot read workbook %q", file), cause).
		WithContext("file", file)
}

// NewSchemaError reports a sheet without any column to use as the code field
func NewSchemaError(file, sheet string) *AppError {
	return NewAppError(ErrTypeSchema, fmt.Sprintf("sheet %q in %q has no columns", sheet, file), nil).
		WithContext("file", file).
		WithContext("sheet", sheet)
}

// NewEmptyInputWarning reports an upload set without a single non-empty sheet
func NewEmptyInputWarning(files int) *AppError {
	return NewAppError(ErrTypeEmptyInput, EmptyInputMessage, nil).
		WithContext("files", files)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err is, or wraps, an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

package errors

import (
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeUnsupported ErrorType = "UNSUPPORTED_MEDIA"
	ErrTypeTooLarge    ErrorType = "TOO_LARGE"
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeConflict    ErrorType = "CONFLICT"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeUnavailable ErrorType = "UNAVAILABLE"
)

// Status maps the error type to an HTTP status code.
func (t ErrorType) Status() int {
	switch t {
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeUnsupported:
		return http.StatusUnsupportedMediaType
	case ErrTypeTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrTypeParsing:
		return http.StatusUnprocessableEntity
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeConflict:
		return http.StatusConflict
	case ErrTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

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

// NewParsingError creates an error for input that could not be read
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

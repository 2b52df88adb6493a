// Package errors provides structured error handling for the profiler
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConflict represents conflict errors
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeStorage represents row-sample store errors
	ErrorTypeStorage ErrorType = "storage"

	// ErrorTypeDimensionMismatch is raised when a category tuple does not
	// address every dimension of a crosstab exactly once.
	ErrorTypeDimensionMismatch ErrorType = "dimension_mismatch"
	// ErrorTypeMissingCategory is raised when a tuple element is empty.
	ErrorTypeMissingCategory ErrorType = "missing_category"
	// ErrorTypeUnknownCategory is raised when a category is not part of its
	// dimension and auto-create was not requested.
	ErrorTypeUnknownCategory ErrorType = "unknown_category"
	// ErrorTypeTypeMismatch is raised when a value does not fit the value
	// type of a crosstab.
	ErrorTypeTypeMismatch ErrorType = "type_mismatch"
	// ErrorTypeNonReducible is raised when a component with several partial
	// results has no reducer.
	ErrorTypeNonReducible ErrorType = "non_reducible"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether err, or any structured error it wraps, has the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// TypeOf returns the type of the outermost structured error, or ErrorTypeInternal
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsDimensionMismatch reports whether err is a dimension mismatch
func IsDimensionMismatch(err error) bool { return IsType(err, ErrorTypeDimensionMismatch) }

// IsMissingCategory reports whether err is a missing category error
func IsMissingCategory(err error) bool { return IsType(err, ErrorTypeMissingCategory) }

// IsUnknownCategory reports whether err is an unknown category error
func IsUnknownCategory(err error) bool { return IsType(err, ErrorTypeUnknownCategory) }

// IsTypeMismatch reports whether err is a value type mismatch
func IsTypeMismatch(err error) bool { return IsType(err, ErrorTypeTypeMismatch) }

// IsNonReducible reports whether err names a component without a reducer
func IsNonReducible(err error) bool { return IsType(err, ErrorTypeNonReducible) }

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}

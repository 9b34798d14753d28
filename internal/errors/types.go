// Package errors provides the structured error taxonomy shared by the
// validation engine.
//
// Content defects found in a document are never errors; they become report
// lines. The types here describe failures of the machinery itself, and the
// distinction that matters most is between a genuine diagram syntax error
// (ErrorTypeSyntax) and an infrastructure failure of the sandbox
// (ErrorTypeInfrastructure) that the diagram checker recovers from.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeSyntax         ErrorType = "syntax"
	ErrorTypeInfrastructure ErrorType = "infrastructure"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeIO             ErrorType = "io"
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeInternal       ErrorType = "internal"
)

// DocsmithError is a structured error type with context.
type DocsmithError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Line        int
	Recoverable bool
}

// Error implements the error interface.
func (e *DocsmithError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line:%d", e.Line))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DocsmithError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *DocsmithError) Is(target error) bool {
	var t *DocsmithError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *DocsmithError) WithContext(key string, value interface{}) *DocsmithError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLine records the 1-based line the error refers to.
func (e *DocsmithError) WithLine(line int) *DocsmithError {
	e.Line = line

	return e
}

// WithComponent adds component context.
func (e *DocsmithError) WithComponent(component string) *DocsmithError {
	e.Component = component

	return e
}

// Error creation functions

// NewSyntaxError creates a diagram syntax error. Syntax errors are the
// expected outcome of validating a broken diagram.
func NewSyntaxError(code, message string) *DocsmithError {
	return &DocsmithError{
		Type:        ErrorTypeSyntax,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewInfrastructureError creates an error describing a failure of the
// execution environment rather than of the content being validated.
func NewInfrastructureError(code, message string, cause error) *DocsmithError {
	return &DocsmithError{
		Type:        ErrorTypeInfrastructure,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *DocsmithError {
	return &DocsmithError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *DocsmithError {
	return &DocsmithError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *DocsmithError {
	return &DocsmithError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *DocsmithError {
	return &DocsmithError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error classification

// IsSyntax reports whether err is a genuine diagram syntax error.
func IsSyntax(err error) bool {
	return hasType(err, ErrorTypeSyntax)
}

// IsInfrastructure reports whether err describes a sandbox or environment
// failure (crash, timeout, shutdown, saturation).
func IsInfrastructure(err error) bool {
	return hasType(err, ErrorTypeInfrastructure)
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var de *DocsmithError
	if errors.As(err, &de) {
		return de.Recoverable
	}

	return false
}

func hasType(err error, errType ErrorType) bool {
	var de *DocsmithError
	if errors.As(err, &de) {
		return de.Type == errType
	}

	return false
}

// Common error codes.
const (
	ErrCodeEmptyDiagram         = "ERR_EMPTY_DIAGRAM"
	ErrCodeDiagramType          = "ERR_DIAGRAM_TYPE"
	ErrCodeUnmatchedBrackets    = "ERR_UNMATCHED_BRACKETS"
	ErrCodeUnmatchedSingleQuote = "ERR_UNMATCHED_SINGLE_QUOTES"
	ErrCodeUnmatchedDoubleQuote = "ERR_UNMATCHED_DOUBLE_QUOTES"
	ErrCodeParse                = "ERR_PARSE"

	ErrCodeWorkerCrashed = "ERR_WORKER_CRASHED"
	ErrCodeWorkerTimeout = "ERR_WORKER_TIMEOUT"
	ErrCodeWorkerSpawn   = "ERR_WORKER_SPAWN"
	ErrCodePoolShutdown  = "ERR_POOL_SHUTDOWN"
	ErrCodeQueueFull     = "ERR_QUEUE_FULL"
	ErrCodeCancelled     = "ERR_CANCELLED"
	ErrCodeRuntime       = "ERR_RUNTIME"

	ErrCodeConfigInvalid = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound  = "ERR_FILE_NOT_FOUND"
	ErrCodeInternalError = "ERR_INTERNAL"
)

// Sentinel errors for pool lifecycle. They compare with errors.Is by type
// and code, so wrapped or re-created instances still match.
var (
	ErrPoolShutdown = NewInfrastructureError(ErrCodePoolShutdown, "worker pool is shutting down", nil)
	ErrQueueFull    = NewInfrastructureError(ErrCodeQueueFull, "worker pool queue is full", nil)
)

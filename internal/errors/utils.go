package errors

import (
	"errors"
	"strconv"
)

// Wrap wraps an error with additional context, creating a DocsmithError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *DocsmithError {
	if err == nil {
		return nil
	}

	var de *DocsmithError
	if errors.As(err, &de) {
		return &DocsmithError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       de,
			Context:     de.Context,
			Component:   de.Component,
			Line:        de.Line,
			Recoverable: de.Recoverable,
		}
	}

	return &DocsmithError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeSyntax || errType == ErrorTypeInfrastructure,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *DocsmithError {
	de := Wrap(err, ErrorTypeIO, code, message)
	if de != nil {
		de.Recoverable = false
	}
	return de
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *DocsmithError {
	de := Wrap(err, ErrorTypeConfig, code, message)
	if de != nil {
		de.Recoverable = false
	}
	return de
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *DocsmithError {
	de := Wrap(err, ErrorTypeInternal, code, message)
	if de != nil {
		de.Recoverable = false
	}
	return de
}

// Message returns the user-facing text of an error: the message of the
// outermost DocsmithError without its code prefix, or err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}

	var de *DocsmithError
	if errors.As(err, &de) {
		if de.Line > 0 && de.Type == ErrorTypeSyntax {
			return "Parse error on line " + strconv.Itoa(de.Line) + ": " + de.Message
		}
		return de.Message
	}

	return err.Error()
}

// Code returns the code of the outermost DocsmithError, or "".
func Code(err error) string {
	var de *DocsmithError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// GetErrorContext extracts context information from a DocsmithError
func GetErrorContext(err error) map[string]interface{} {
	var de *DocsmithError
	if errors.As(err, &de) {
		context := make(map[string]interface{})
		for k, v := range de.Context {
			context[k] = v
		}
		if de.Component != "" {
			context["component"] = de.Component
		}
		if de.Line > 0 {
			context["line"] = de.Line
		}
		context["type"] = string(de.Type)
		context["code"] = de.Code
		context["recoverable"] = de.Recoverable
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Package errors provides the error taxonomy shared by the front end, the
// explorer and the command line tool.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	// Structural failures: exploration for the platform is aborted.
	CodeParse                  = "PARSE_ERROR"
	CodeUnknownTypeKind        = "UNKNOWN_TYPE_KIND"
	CodeUnsupportedDeclaration = "UNSUPPORTED_DECLARATION"
	CodeCallingConvention      = "CALLING_CONVENTION"
	CodeUnreachable            = "UNREACHABLE"

	// Input and environment failures.
	CodeConfig   = "CONFIG_ERROR"
	CodeIO       = "IO_ERROR"
	CodePlatform = "PLATFORM_ERROR"
	CodeMacro    = "MACRO_ERROR"
)

// AppError represents an error with a code and optional details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// ParseError creates a front end failure for the given file.
func ParseError(path string, err error) *AppError {
	return Wrap(CodeParse, fmt.Sprintf("parsing %s", path), err).WithDetail("file", path)
}

// UnknownTypeKind reports a type the classifier has no rule for.
func UnknownTypeKind(typeKind, spelling string) *AppError {
	return Newf(CodeUnknownTypeKind, "unknown type kind '%s' for '%s'", typeKind, spelling).
		WithDetail("type_kind", typeKind)
}

// UnsupportedDeclaration reports a declaration outside the supported C subset.
func UnsupportedDeclaration(message string) *AppError {
	return New(CodeUnsupportedDeclaration, message)
}

// Unreachable reports a programming error.
func Unreachable(format string, args ...any) *AppError {
	return Newf(CodeUnreachable, format, args...)
}

// ConfigError creates a configuration error.
func ConfigError(message string, err error) *AppError {
	return Wrap(CodeConfig, message, err)
}

// IOError creates a filesystem error.
func IOError(message string, err error) *AppError {
	return Wrap(CodeIO, message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsParse checks if err is a front end failure.
func IsParse(err error) bool {
	return CodeOf(err) == CodeParse
}

// IsUnsupported checks if err signals a construct the explorer cannot model.
func IsUnsupported(err error) bool {
	switch CodeOf(err) {
	case CodeUnknownTypeKind, CodeUnsupportedDeclaration, CodeCallingConvention, CodeUnreachable:
		return true
	}
	return false
}

// IsConfig checks if err is a configuration error.
func IsConfig(err error) bool {
	return CodeOf(err) == CodeConfig
}

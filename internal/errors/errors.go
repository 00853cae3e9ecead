// Package errors provides centralized error definitions and error handling utilities
// for packstream. It defines the bridge's error kinds, sentinel errors for
// errors.Is matching, and classification helpers used to decide which failures
// end a pipeline and which are absorbed by a watch session.
//
// # Error Kinds
//
// Every error produced by the bridge is tagged with the plugin identity
// ([PluginName]) so that it can be told apart from failures raised by other
// pipeline stages:
//   - MissingConfigurationError: a configuration was supplied without any target
//   - UnsupportedContentError: a piped item carries streamed (not buffered) content
//   - CompilationError: the engine reported errors for a one-shot build
//   - EngineInvocationError: the engine itself failed or broke its contract
//
// # Usage
//
//	err := errors.NewUnsupportedContentError("app.js")
//	if errors.Is(err, errors.ErrUnsupportedContent) { ... }
//
//	var compErr *errors.CompilationError
//	if errors.As(err, &compErr) {
//	    for _, msg := range compErr.Messages { ... }
//	}
//
// # Propagation
//
// [IsFatal] encodes the propagation policy: compilation errors are fatal only
// outside watch mode, everything else always ends the stage.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// PluginName identifies the bridge in every error it produces.
const PluginName = "packstream"

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityWarning is for errors that are logged but do not end a stage.
	SeverityWarning Severity = iota
	// SeverityError is for errors that end the current stage.
	SeverityError
	// SeverityCritical is for errors after which engine state cannot be trusted.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrMissingConfiguration indicates that no usable build configuration was supplied.
	ErrMissingConfiguration = New("missing build configuration")
	// ErrUnsupportedContent indicates that an item has no concrete buffered content.
	ErrUnsupportedContent = New("only buffers are supported")
	// ErrCompilation indicates that the engine reported compilation errors.
	ErrCompilation = New("compilation failed")
	// ErrEngineInvocation indicates that invoking the engine failed.
	ErrEngineInvocation = New("engine invocation failed")
)

// -----------------------------------------------------------------------------
// PluginError Interface
// -----------------------------------------------------------------------------

// PluginError is implemented by every error kind in this package.
type PluginError interface {
	error

	// Plugin returns the identity of the stage that raised the error.
	Plugin() string

	// Severity returns the severity level of the error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error kinds.
type baseError struct {
	kind       string
	message    string
	cause      error
	sentinel   error
	severity   Severity
	userFacing bool
}

// Error returns the plugin-tagged error message.
func (e *baseError) Error() string {
	prefix := fmt.Sprintf("%s: %s", PluginName, e.kind)
	if e.message == "" {
		if e.cause != nil {
			return fmt.Sprintf("%s: %v", prefix, e.cause)
		}
		return prefix
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is matches the kind's sentinel and anything the cause matches.
func (e *baseError) Is(target error) bool {
	if e.sentinel != nil && target == e.sentinel {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Plugin returns PluginName.
func (e *baseError) Plugin() string {
	return PluginName
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Error Kinds
// -----------------------------------------------------------------------------

// MissingConfigurationError is returned when a build configuration is
// supplied without any usable target.
//
// Example:
//
//	err := errors.NewMissingConfigurationError("target list is empty")
//	fmt.Println(err) // "packstream: missing build configuration: target list is empty"
type MissingConfigurationError struct {
	baseError
	Source string // where the configuration was expected to come from
}

// NewMissingConfigurationError creates a new MissingConfigurationError.
func NewMissingConfigurationError(message string) *MissingConfigurationError {
	return &MissingConfigurationError{
		baseError: baseError{
			kind:       "missing build configuration",
			message:    message,
			sentinel:   ErrMissingConfiguration,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithSource records where the configuration was expected to come from.
func (e *MissingConfigurationError) WithSource(source string) *MissingConfigurationError {
	e.Source = source
	if source != "" && e.message == "" {
		e.message = source
	}
	return e
}

// WithCause adds a cause to the error.
func (e *MissingConfigurationError) WithCause(cause error) *MissingConfigurationError {
	e.cause = cause
	return e
}

// UnsupportedContentError is returned when a piped item has streamed content
// instead of a concrete byte buffer.
type UnsupportedContentError struct {
	baseError
	Basename string
}

// NewUnsupportedContentError creates a new UnsupportedContentError for the
// item with the given basename.
func NewUnsupportedContentError(basename string) *UnsupportedContentError {
	msg := "only buffers are supported"
	if basename != "" {
		msg = fmt.Sprintf("only buffers are supported (item %q)", basename)
	}
	return &UnsupportedContentError{
		baseError: baseError{
			kind:       "unsupported content",
			message:    msg,
			sentinel:   ErrUnsupportedContent,
			severity:   SeverityError,
			userFacing: true,
		},
		Basename: basename,
	}
}

// CompilationError is returned when a one-shot build reports engine errors.
//
// Example:
//
//	err := errors.NewCompilationError([]string{"a.js:1:2: unexpected token"})
//	fmt.Println(err) // "packstream: compilation failed: a.js:1:2: unexpected token"
type CompilationError struct {
	baseError
	Target   string
	Messages []string
}

// NewCompilationError creates a CompilationError whose message is the
// newline-joined list of diagnostic messages.
func NewCompilationError(messages []string) *CompilationError {
	return &CompilationError{
		baseError: baseError{
			kind:       "compilation failed",
			message:    strings.Join(messages, "\n"),
			sentinel:   ErrCompilation,
			severity:   SeverityError,
			userFacing: true,
		},
		Messages: messages,
	}
}

// WithTarget records the build target that failed.
func (e *CompilationError) WithTarget(target string) *CompilationError {
	e.Target = target
	return e
}

// EngineInvocationError is returned when the engine could not be constructed,
// failed while running, or broke its callback contract.
type EngineInvocationError struct {
	baseError
	Operation string
}

// NewEngineInvocationError wraps cause as an EngineInvocationError.
func NewEngineInvocationError(operation string, cause error) *EngineInvocationError {
	return &EngineInvocationError{
		baseError: baseError{
			kind:       "engine invocation failed",
			message:    operation,
			cause:      cause,
			sentinel:   ErrEngineInvocation,
			severity:   SeverityCritical,
			userFacing: false,
		},
		Operation: operation,
	}
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal reports whether err must end the bridge stage. Compilation errors
// are absorbed by a watch session; every other error is fatal in both modes.
func IsFatal(err error, watch bool) bool {
	if err == nil {
		return false
	}
	if watch && Is(err, ErrCompilation) {
		return false
	}
	return true
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var pluginErr PluginError
	if As(err, &pluginErr) {
		return pluginErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PluginError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityWarning
	}
	var pluginErr PluginError
	if As(err, &pluginErr) {
		return pluginErr.Severity()
	}
	return SeverityError
}

// IsPluginError reports whether err (or anything it wraps) was raised by the bridge.
func IsPluginError(err error) bool {
	var pluginErr PluginError
	return As(err, &pluginErr)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

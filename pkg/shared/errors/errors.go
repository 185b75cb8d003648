package errors

import (
	"fmt"
)

// ParseError reports a source file that could not be parsed. It is recoverable:
// the file is skipped and contributes no facts.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse %q at %d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("failed to parse %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a ParseError for the given location.
func NewParseError(path string, line, column int, err error) error {
	return &ParseError{
		Path:   path,
		Line:   line,
		Column: column,
		Err:    err,
	}
}

// IOError reports a source file that could not be read. Handled like ParseError.
type IOError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates an IOError for the given path.
func NewIOError(path string, err error) error {
	return &IOError{
		Path: path,
		Err:  err,
	}
}

// ConfigError reports malformed configuration. It is fatal and aborts the run
// before any file is processed.
type ConfigError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for the given configuration file.
func NewConfigError(path string, err error) error {
	return &ConfigError{
		Path: path,
		Err:  err,
	}
}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, format string, args ...interface{}) error {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

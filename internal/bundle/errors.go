// Package bundle merges single-measurement spectrometer files into one table
// keyed by a fixed wavelength axis.
package bundle

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a bundle error.
type ErrorType string

const (
	// IOError indicates a file could not be read or written.
	IOError ErrorType = "IO_ERROR"
	// FormatError indicates a malformed data line, exposure-time line or empty file.
	FormatError ErrorType = "FORMAT_ERROR"
	// AlignmentError indicates an intensity column that does not match the wavelength axis.
	AlignmentError ErrorType = "ALIGNMENT_ERROR"
	// MetadataMissingError indicates a file without an exposure-time line.
	MetadataMissingError ErrorType = "METADATA_MISSING"
	// NumericParseError indicates a value that is not a valid decimal number.
	NumericParseError ErrorType = "NUMERIC_PARSE_ERROR"
	// DivideByZeroError indicates a zero exposure time during normalization.
	DivideByZeroError ErrorType = "DIVIDE_BY_ZERO"
)

// Error represents a failure in one of the bundle operations.
type Error struct {
	Type    ErrorType
	Path    string // File involved, if any
	Line    int    // 1-based line number, 0 when not applicable
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Type)
	if e.Path != "" {
		msg += ": " + e.Path
		if e.Line > 0 {
			msg += fmt.Sprintf(":%d", e.Line)
		}
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err, or any error it wraps, is a bundle error of type t.
func IsType(err error, t ErrorType) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Type == t
	}
	return false
}

func newError(t ErrorType, path, format string, args ...interface{}) *Error {
	return &Error{
		Type:    t,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

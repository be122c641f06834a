package parser

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMissingColumn is returned when the installation id column is absent.
	ErrMissingColumn = errors.New("required column not found")
	// ErrEmptySheet is returned when a file has no header row.
	ErrEmptySheet = errors.New("no header row")
)

// ParseError represents a parsing error with detailed context
type ParseError struct {
	File     string    `json:"file"`
	Line     int       `json:"line"`
	Field    string    `json:"field,omitempty"`
	Value    string    `json:"value,omitempty"`
	Cause    error     `json:"cause,omitempty"`
	Message  string    `json:"message"`
	Occurred time.Time `json:"occurred"`
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at %s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.File, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseErrorWithCause creates a new ParseError with an underlying cause
func NewParseErrorWithCause(file string, line int, message string, cause error) *ParseError {
	return &ParseError{
		File:     file,
		Line:     line,
		Message:  message,
		Cause:    cause,
		Occurred: time.Now(),
	}
}

// FileError represents file-level errors (opening, reading, etc.)
type FileError struct {
	Path     string    `json:"path"`
	Op       string    `json:"operation"` // "open", "read", "stat", etc.
	Cause    error     `json:"cause,omitempty"`
	Message  string    `json:"message"`
	Occurred time.Time `json:"occurred"`
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s error on %s: %s", e.Op, e.Path, e.Message)
}

func (e *FileError) Unwrap() error {
	return e.Cause
}

// NewFileError creates a new FileError
func NewFileError(path, op, message string, cause error) *FileError {
	return &FileError{
		Path:     path,
		Op:       op,
		Message:  message,
		Cause:    cause,
		Occurred: time.Now(),
	}
}

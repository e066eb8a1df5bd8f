package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while clustering samples or ranking
// reference candidates.
var (
	// ErrInvalidState indicates that a State operation received invalid input.
	ErrInvalidState = errors.New("invalid state")

	// ErrKeyNotFound indicates that a requested state key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrTypeMismatch indicates that a value's type doesn't match the expected type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMalformedRow is the cause carried by a ParseError when an input
	// row does not have the expected shape or a numeric field is not a number.
	ErrMalformedRow = errors.New("malformed row")

	// ErrMissingResult is the cause carried by a MissingResultError.
	ErrMissingResult = errors.New("missing result table")

	// ErrNoCandidates is the cause carried by a NoCandidatesError.
	ErrNoCandidates = errors.New("no reference candidates")
)

// StateError represents an error that occurred during State operations.
// It provides context about which key and operation caused the error.
type StateError struct {
	// Key is the name of the state key involved in the failed operation.
	Key string

	// Operation describes what operation was being performed when the error occurred.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key string, operation string, err error) *StateError {
	return &StateError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// ParseError reports a malformed field in a tabular input. Path and Row
// identify the offending line so an operator can correct the input; Row is
// 1-based and counts every physical line of the file.
type ParseError struct {
	// Path is the file the row was read from. It may be empty when the
	// table was read from an unnamed stream.
	Path string

	// Row is the 1-based line number of the offending row.
	Row int

	// Field names the column that failed to parse.
	Field string

	// Value is the raw text that could not be parsed.
	Value string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Field == "" {
		return fmt.Sprintf("parse error: %s:%d: %v", loc, e.Row, e.Err)
	}
	return fmt.Sprintf("parse error: %s:%d: field %q value %q: %v", loc, e.Row, e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// Is reports ErrMalformedRow as a match so callers can test the category
// without caring about the concrete cause.
func (e *ParseError) Is(target error) bool { return target == ErrMalformedRow }

// NewParseError creates a new ParseError for the given location.
func NewParseError(path string, row int, field, value string, err error) *ParseError {
	return &ParseError{Path: path, Row: row, Field: field, Value: value, Err: err}
}

// MissingResultError reports an identification result table that is absent
// or has no locatable header row. An empty Path means no tables were
// supplied at all.
type MissingResultError struct {
	// Path is the result table that could not be used.
	Path string

	// Reason describes why the table was rejected.
	Reason string
}

// Error implements the error interface for MissingResultError.
func (e *MissingResultError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("missing result table: %s", e.Reason)
	}
	return fmt.Sprintf("missing result table %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrMissingResult.
func (e *MissingResultError) Unwrap() error { return ErrMissingResult }

// NewMissingResultError creates a new MissingResultError.
func NewMissingResultError(path, reason string) *MissingResultError {
	return &MissingResultError{Path: path, Reason: reason}
}

// NoCandidatesError is returned when ranking is attempted over an empty
// candidate set.
type NoCandidatesError struct {
	// Samples is the number of samples whose results were aggregated.
	Samples int
}

// Error implements the error interface for NoCandidatesError.
func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("no reference candidates to rank (samples=%d)", e.Samples)
}

// Unwrap returns ErrNoCandidates.
func (e *NoCandidatesError) Unwrap() error { return ErrNoCandidates }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

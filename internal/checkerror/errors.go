// Package checkerror defines the error taxonomy for the check processing
// pipeline. Each failure class carries enough context for the queue timeline
// to show operator-facing diagnostic text instead of raw stack traces.
package checkerror

import "fmt"

// ParseError represents an extraction failure: the extractor could not
// produce usable fields from the raw text.
type ParseError struct {
	Source  string
	Snippet string // leading fragment of the raw text for diagnostics
	Err     error
}

func (e *ParseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("parse failed for %s message '%s': %v", e.Source, e.Snippet, e.Err)
	}
	return fmt.Sprintf("parse failed for %s message: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError represents fields that were extracted but are semantically
// invalid, e.g. a non-numeric amount or an unparseable card number.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation failed for %s='%s': %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// StorageError represents a durable write or read failure. It is the one
// class the pipeline retries before surfacing.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DuplicateError is returned synchronously to manual-entry callers when the
// candidate duplicates an existing check. Bot and forward ingestion never
// return it; those paths record-and-flag instead.
type DuplicateError struct {
	CheckID     string // the existing check that the candidate duplicates
	CandidateID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("check already exists as %s", e.CheckID)
}

// NotFoundError is returned for operations on an unknown check id.
type NotFoundError struct {
	CheckID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("check %s not found", e.CheckID)
}

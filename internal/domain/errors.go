package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates an unrecognized document input format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrConversion indicates that document rendering failed on both the
	// primary and fallback resolutions.
	ErrConversion = errors.New("conversion failed")

	// ErrStageFailed indicates an unrecoverable stage failure.
	ErrStageFailed = errors.New("stage failed")

	// ErrInvalidTransition indicates a job state transition that violates
	// the pipeline state machine.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrRateLimited indicates that an external capability rate limited the
	// request.
	ErrRateLimited = errors.New("rate limited")

	// ErrCancelled indicates that an operation was cancelled.
	ErrCancelled = errors.New("cancelled")
)

// UnsupportedFormatError reports an unrecognized document format at
// ingestion time. Fatal for the document, never for the whole job.
type UnsupportedFormatError struct {
	Name   string
	Format DocumentFormat
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("unsupported format for document %q", e.Name)
	}
	return fmt.Sprintf("unsupported format %q for document %q", e.Format, e.Name)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// ConversionError reports a page-rendering failure that persisted through
// the fallback resolution.
type ConversionError struct {
	Name  string
	Page  int
	Cause error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed for document %q page %d: %v", e.Name, e.Page, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ConversionError) Unwrap() error {
	return ErrConversion
}

// StageError reports an unrecoverable failure of a pipeline stage. It
// aborts the job, surfacing as Failed(stage) in the job state.
type StageError struct {
	Stage Stage
	Cause error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *StageError) Unwrap() error {
	return ErrStageFailed
}

// NewStageError creates a StageError for the given stage.
func NewStageError(stage Stage, cause error) *StageError {
	return &StageError{Stage: stage, Cause: cause}
}

// InvalidTransitionError reports a rejected job state transition.
type InvalidTransitionError struct {
	Phase  JobPhase
	Stage  Stage
	Reason string
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for stage %s in phase %s: %s", e.Stage, e.Phase, e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

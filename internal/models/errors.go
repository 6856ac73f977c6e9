package models

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError represents a single validation problem for a field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a query names fields outside the
// allow-lists or is missing required fields. It is never sent back to the
// language model for fixing.
type ValidationError struct {
	Result   ValidationResult
	Problems []FieldError
}

func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	parts := make([]string, 0, 3+len(v.Problems))
	if len(v.Result.InvalidMetrics) > 0 {
		parts = append(parts, "invalid metrics: "+strings.Join(v.Result.InvalidMetrics, ", "))
	}
	if len(v.Result.InvalidDimensions) > 0 {
		parts = append(parts, "invalid dimensions: "+strings.Join(v.Result.InvalidDimensions, ", "))
	}
	if len(v.Result.InvalidFilterKeys) > 0 {
		parts = append(parts, "invalid filter keys: "+strings.Join(v.Result.InvalidFilterKeys, ", "))
	}
	for _, p := range v.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Field, p.Message))
	}
	if len(parts) == 0 {
		return "invalid request"
	}
	return strings.Join(parts, "; ")
}

// Add records a field-level problem.
func (v *ValidationError) Add(field, msg string) {
	v.Problems = append(v.Problems, FieldError{Field: field, Message: msg})
}

// Empty reports whether the error carries no problems at all.
func (v *ValidationError) Empty() bool {
	return v == nil || (v.Result.Empty() && len(v.Problems) == 0)
}

// Extraction failure reasons.
const (
	ReasonModelCall    = "language model call failed"
	ReasonNoToolCall   = "model did not call the report tool"
	ReasonBadArguments = "invalid tool arguments"
	ReasonNoModel      = "no language model configured"
)

// ExtractionError means the language model did not produce usable query arguments.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "query extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Upstream reports whether the model itself could not be reached, as opposed
// to answering with something unusable.
func (e *ExtractionError) Upstream() bool { return e.Reason == ReasonModelCall }

// BackendError wraps a failure of the analytics reporting backend.
type BackendError struct {
	// StatusCode is the HTTP status returned by the backend, 0 for transport errors.
	StatusCode int
	Message    string
	// Timeout is set when the call hit its deadline.
	Timeout bool
	Err     error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("analytics backend error (status %d): %s", e.StatusCode, e.Message)
	}
	return "analytics backend error: " + e.Message
}

func (e *BackendError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient (5xx or transport level).
func (e *BackendError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// SummarizationError is returned when the final language-model call fails
// after the report was fetched. Fallback carries the rows and insights so
// callers do not lose known-good data.
type SummarizationError struct {
	Err      error
	Fallback *QueryResult
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// Category names the error class for logs and metrics.
func Category(err error) string {
	var (
		ve *ValidationError
		ee *ExtractionError
		be *BackendError
		se *SummarizationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ee):
		return "extraction"
	case errors.As(err, &be):
		return "backend"
	case errors.As(err, &se):
		return "summarization"
	default:
		return "internal"
	}
}

package domain

import (
	"fmt"
	"strings"
)

// Severity indicates how serious a validation finding is.
type Severity string

const (
	// SeverityError blocks the record or plugin from being used.
	SeverityError Severity = "error"
	// SeverityWarning is advisory and never blocks.
	SeverityWarning Severity = "warning"
)

// ValidationError describes one field-level problem found during
// plugin or record validation. Validation errors are collected, not
// thrown; callers inspect the full list.
type ValidationError struct {
	Code     string   `json:"code"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

// NetworkError indicates a fetch that exhausted its retries or timed
// out. It is fatal to the affected record, never to the run.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap returns the underlying cause.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProcessingError is a record-level transform or business failure.
// The run continues; the failure is recorded in the processing report.
type ProcessingError struct {
	ExternalID string
	Stage      string
	Err        error
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process record %s at %s: %v", e.ExternalID, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// ConfigurationError aggregates every configuration violation found
// before a run starts. It is fatal; no record is processed.
type ConfigurationError struct {
	Violations []string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid configuration"
	}
	return "invalid configuration: " + strings.Join(e.Violations, "; ")
}

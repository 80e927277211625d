// Package report tracks per-record outcomes of an import run and
// aggregates them into a processing report.
package report

import "time"

// Status values for tracked records.
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusOther      Status = "other"
)

// Record is one tracked outcome for a single processed candidate.
type Record struct {
	ID             string         `json:"id"`
	ExternalID     string         `json:"external_id"`
	Status         Status         `json:"status"`
	Reason         string         `json:"reason,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	ProcessingTime *time.Duration `json:"processing_time,omitempty"`
	DuplicateInfo  map[string]any `json:"duplicate_info,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Error captures one record-level failure for the errors section of
// the report.
type Error struct {
	ExternalID string    `json:"external_id"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Summary aggregates run-level statistics.
type Summary struct {
	TotalRecords      int           `json:"total_records"`
	Successful        int           `json:"successful"`
	Failed            int           `json:"failed"`
	Skipped           int           `json:"skipped"`
	Other             int           `json:"other"`
	DuplicateRecords  int           `json:"duplicate_records"`
	SuccessRate       float64       `json:"success_rate"`
	ProcessingTime    time.Duration `json:"processing_time"`
	AverageRecordTime time.Duration `json:"average_record_time"`
}

// Operation snapshots what was run.
type Operation struct {
	Importer  string    `json:"importer"`
	Exporter  string    `json:"exporter"`
	InputFile string    `json:"input_file,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Duration  string    `json:"duration,omitempty"`
}

// Metadata holds the operation snapshot plus caller parameters and
// environment info.
type Metadata struct {
	Operation   Operation         `json:"operation"`
	Parameters  map[string]any    `json:"parameters,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// ProcessingReport is the finalized, immutable run report.
type ProcessingReport struct {
	Metadata Metadata `json:"metadata"`
	Summary  Summary  `json:"summary"`
	Records  []Record `json:"records"`
	Errors   []Error  `json:"errors"`
}

// StartParams configures StartOperation.
type StartParams struct {
	Importer    string
	Exporter    string
	InputFile   string
	Parameters  map[string]any
	Environment map[string]string
}

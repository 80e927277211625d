package report

import (
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/openartmap/ingest/internal/logger"
)

// percentFactor converts a ratio to a percentage.
const percentFactor = 100

// Tracker records the outcome and timing of every processed record in
// one run. A tracker is constructed per run, fed incrementally from a
// single goroutine, and finalized once via GenerateReport. When
// disabled, every method is a no-op so callers never branch.
type Tracker struct {
	enabled    bool
	logger     logger.Interface
	metadata   Metadata
	records    []Record
	errors     []Error
	timings    map[string]time.Time
	duplicates int
	started    time.Time
	finalized  bool
}

// NewTracker creates a tracker. Pass enabled=false to turn all
// tracking into no-ops.
func NewTracker(enabled bool, log logger.Interface) *Tracker {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Tracker{
		enabled: enabled,
		logger:  log.WithComponent("report"),
		timings: make(map[string]time.Time),
	}
}

// StartOperation snapshots run metadata and the start time.
func (t *Tracker) StartOperation(params StartParams) {
	if !t.enabled {
		return
	}

	t.started = time.Now()

	env := params.Environment
	if env == nil {
		env = map[string]string{
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
			"hostname":   hostname(),
		}
	}

	t.metadata = Metadata{
		Operation: Operation{
			Importer:  params.Importer,
			Exporter:  params.Exporter,
			InputFile: params.InputFile,
			StartTime: t.started,
		},
		Parameters:  params.Parameters,
		Environment: env,
	}

	t.logger.Info("operation started",
		"importer", params.Importer,
		"exporter", params.Exporter,
		"input_file", params.InputFile,
	)
}

// StartRecordTiming marks the processing start for one external ID.
// A later record call for the same ID picks up the elapsed time.
func (t *Tracker) StartRecordTiming(externalID string) {
	if !t.enabled {
		return
	}
	t.timings[externalID] = time.Now()
}

// RecordSuccess appends a successful record.
func (t *Tracker) RecordSuccess(externalID, reason string) {
	t.append(externalID, StatusSuccessful, reason, nil, "")
}

// RecordFailure appends a failed record and a report error.
func (t *Tracker) RecordFailure(externalID string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.append(externalID, StatusFailed, "", nil, msg)
	if t.enabled {
		t.errors = append(t.errors, Error{
			ExternalID: externalID,
			Message:    msg,
			Timestamp:  time.Now(),
		})
	}
}

// RecordSkipped appends a skipped record. duplicateInfo may carry the
// similarity result that caused the skip.
func (t *Tracker) RecordSkipped(externalID, reason string, duplicateInfo map[string]any) {
	t.append(externalID, StatusSkipped, reason, duplicateInfo, "")
}

// RecordOther appends a record with an outcome outside the usual
// three, e.g. merged into an existing entry.
func (t *Tracker) RecordOther(externalID, reason string) {
	t.append(externalID, StatusOther, reason, nil, "")
}

// SetDuplicateCount records duplicates detected during export-side
// merging, distinct from scrape-side duplicate skips.
func (t *Tracker) SetDuplicateCount(n int) {
	if !t.enabled {
		return
	}
	t.duplicates = n
}

// append adds one record, resolving the processing time if timing was
// started for the external ID.
func (t *Tracker) append(externalID string, status Status, reason string, duplicateInfo map[string]any, errMsg string) {
	if !t.enabled || t.finalized {
		return
	}

	record := Record{
		ID:            uuid.NewString(),
		ExternalID:    externalID,
		Status:        status,
		Reason:        reason,
		Timestamp:     time.Now(),
		DuplicateInfo: duplicateInfo,
		Error:         errMsg,
	}

	if start, ok := t.timings[externalID]; ok {
		elapsed := time.Since(start)
		record.ProcessingTime = &elapsed
		delete(t.timings, externalID)
	}

	t.records = append(t.records, record)
}

// GetReport returns a live partial snapshot for progress display.
func (t *Tracker) GetReport() ProcessingReport {
	if !t.enabled {
		return ProcessingReport{}
	}
	return t.build(time.Now())
}

// GenerateReport finalizes the end time and returns the immutable
// report. Further record calls are ignored.
func (t *Tracker) GenerateReport() ProcessingReport {
	if !t.enabled {
		return ProcessingReport{}
	}

	end := time.Now()
	t.finalized = true

	rep := t.build(end)
	rep.Metadata.Operation.EndTime = end
	rep.Metadata.Operation.Duration = end.Sub(t.started).String()

	t.logger.Info("operation finished",
		"total", rep.Summary.TotalRecords,
		"successful", rep.Summary.Successful,
		"failed", rep.Summary.Failed,
		"skipped", rep.Summary.Skipped,
		"duration", rep.Metadata.Operation.Duration,
	)

	return rep
}

// build assembles a report snapshot as of now.
func (t *Tracker) build(now time.Time) ProcessingReport {
	summary := Summary{DuplicateRecords: t.duplicates}

	var timed int
	var timedTotal time.Duration
	for _, r := range t.records {
		switch r.Status {
		case StatusSuccessful:
			summary.Successful++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		case StatusOther:
			summary.Other++
		}
		if r.ProcessingTime != nil {
			timed++
			timedTotal += *r.ProcessingTime
		}
	}

	summary.TotalRecords = summary.Successful + summary.Failed + summary.Skipped + summary.Other
	if summary.TotalRecords > 0 {
		summary.SuccessRate = float64(summary.Successful) / float64(summary.TotalRecords) * percentFactor
	}
	if !t.started.IsZero() {
		summary.ProcessingTime = now.Sub(t.started)
	}
	if timed > 0 {
		summary.AverageRecordTime = timedTotal / time.Duration(timed)
	}

	records := make([]Record, len(t.records))
	copy(records, t.records)
	errors := make([]Error, len(t.errors))
	copy(errors, t.errors)

	return ProcessingReport{
		Metadata: t.metadata,
		Summary:  summary,
		Records:  records,
		Errors:   errors,
	}
}

// hostname returns the host name or a placeholder.
func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

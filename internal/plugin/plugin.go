// Package plugin provides the importer/exporter plugin registry.
// Plugins are declared as specs with function-valued capabilities and
// validated once at registration; invalid plugins stay stored for
// diagnostics but are excluded from lookup.
package plugin

import (
	"context"

	"github.com/openartmap/ingest/internal/domain"
)

// Plugin kinds handled by the registry.
const (
	KindImporter = "importer"
	KindExporter = "exporter"
)

// NameAll is the sentinel importer name meaning "every importer".
const NameAll = "all"

// Exporter output types.
const (
	OutputFile    = "file"
	OutputAPI     = "api"
	OutputStream  = "stream"
	OutputConsole = "console"
)

// validOutputTypes gates ExporterSpec.OutputType.
var validOutputTypes = map[string]struct{}{
	OutputFile:    {},
	OutputAPI:     {},
	OutputStream:  {},
	OutputConsole: {},
}

// DataValidation is the outcome of validating one raw input record or
// one exporter configuration.
type DataValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ExportResult summarizes one exporter invocation.
type ExportResult struct {
	Exported    int    `json:"exported"`
	Skipped     int    `json:"skipped"`
	Destination string `json:"destination,omitempty"`
}

// ImporterSpec declares an importer plugin: metadata plus the three
// capability functions every importer must provide.
type ImporterSpec struct {
	Name             string
	Description      string
	SupportedFormats []string
	RequiredFields   []string
	Metadata         map[string]any

	// MapData converts one raw source record to a candidate record.
	MapData func(raw map[string]any) (*domain.CandidateRecord, error)
	// ValidateData checks one raw source record before mapping.
	ValidateData func(raw map[string]any) DataValidation
	// GenerateImportID derives a stable external ID for a raw record.
	GenerateImportID func(raw map[string]any) string
}

// ExporterSpec declares an exporter plugin.
type ExporterSpec struct {
	Name             string
	Description      string
	OutputType       string
	RequiresNetwork  bool
	SupportedFormats []string
	Metadata         map[string]any

	// Export hands off mapped records to the destination.
	Export func(ctx context.Context, records []*domain.CandidateRecord, config map[string]any) (*ExportResult, error)
	// Configure applies exporter-specific options.
	Configure func(options map[string]any) error
	// Validate checks an exporter configuration before a run.
	Validate func(config map[string]any) DataValidation
}

// ValidationResult is the outcome of the registration-time validation
// pass for one plugin.
type ValidationResult struct {
	IsValid  bool                     `json:"is_valid"`
	Errors   []domain.ValidationError `json:"errors,omitempty"`
	Warnings []domain.ValidationError `json:"warnings,omitempty"`
}

// Entry is one registered plugin with its validation outcome. Entries
// are never mutated after registration except by explicit re-register.
type Entry[T any] struct {
	Name       string
	Plugin     T
	IsValid    bool
	Validation ValidationResult
}

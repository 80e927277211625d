package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/plugin"
	"github.com/openartmap/ingest/internal/report"
	"github.com/openartmap/ingest/internal/similarity"
)

// Routing decisions for scored candidates.
const (
	decisionCreate = "create"
	decisionMerge  = "merge"
	decisionSkip   = "skip"
)

// Catalog supplies the existing entries an incoming candidate is
// scored against.
type Catalog interface {
	Entries(ctx context.Context) ([]*domain.CandidateRecord, error)
}

// RunResult is what a finished orchestration returns. The report is
// always present, even for a run with zero successes. Created and
// Merged together are what went to the exporter; a merged record is a
// copy of the matched catalog entry with the incoming tags folded in.
type RunResult struct {
	Report         report.ProcessingReport
	Created        []*domain.CandidateRecord
	Merged         []*domain.CandidateRecord
	MissingArtists []string
	Export         *plugin.ExportResult
}

// Orchestrator drives one import run. Each orchestrator owns its own
// tracker and accumulators; the registry, engine, and catalog it
// borrows are read-only during the run.
type Orchestrator struct {
	registry *plugin.Registry
	engine   *similarity.Engine
	tracker  *report.Tracker
	catalog  Catalog
	config   Config
	logger   logger.Interface
}

// New creates an orchestrator. The configuration is validated here;
// a ConfigurationError aborts before any record is processed.
func New(
	registry *plugin.Registry,
	engine *similarity.Engine,
	tracker *report.Tracker,
	catalog Catalog,
	cfg Config,
	log logger.Interface,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Orchestrator{
		registry: registry,
		engine:   engine,
		tracker:  tracker,
		catalog:  catalog,
		config:   cfg,
		logger:   log.WithComponent("importer"),
	}, nil
}

// Run imports rawRecords through the named importer and hands the
// accepted records to the named exporter. Record-level failures are
// contained and reported; only configuration and plugin-resolution
// problems abort the run.
func (o *Orchestrator) Run(
	ctx context.Context,
	importerName, exporterName, inputFile string,
	rawRecords []map[string]any,
	exporterConfig map[string]any,
) (*RunResult, error) {
	imp, exp, err := o.resolvePlugins(importerName, exporterName)
	if err != nil {
		return nil, err
	}

	if exp.Validate != nil {
		if v := exp.Validate(exporterConfig); !v.Valid {
			return nil, &domain.ConfigurationError{Violations: v.Errors}
		}
	}
	if exporterConfig != nil {
		if cfgErr := exp.Configure(exporterConfig); cfgErr != nil {
			return nil, fmt.Errorf("configure exporter %s: %w", exporterName, cfgErr)
		}
	}

	existing, err := o.catalog.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	o.tracker.StartOperation(report.StartParams{
		Importer:  importerName,
		Exporter:  exporterName,
		InputFile: inputFile,
		Parameters: map[string]any{
			"duplicate_threshold":    o.config.DuplicateThreshold,
			"enable_tag_merging":     o.config.EnableTagMerging,
			"create_missing_artists": o.config.CreateMissingArtists,
			"batch_size":             o.config.BatchSize,
			"record_count":           len(rawRecords),
		},
	})

	result := &RunResult{}
	duplicates := 0

	for start := 0; start < len(rawRecords); start += o.config.BatchSize {
		end := min(start+o.config.BatchSize, len(rawRecords))
		o.logger.Debug("processing batch", "from", start, "to", end, "of", len(rawRecords))

		for _, raw := range rawRecords[start:end] {
			if ctx.Err() != nil {
				o.logger.Warn("run cancelled", "processed", start)
				result.Report = o.tracker.GenerateReport()
				return result, ctx.Err()
			}
			if o.processRecord(imp, raw, existing, result) {
				duplicates++
			}
		}
	}

	o.tracker.SetDuplicateCount(duplicates)

	// Merged records carry the combined tag sets and go out with the
	// created ones, so tag merging reaches the destination instead of
	// only showing up in the report counters.
	outbound := make([]*domain.CandidateRecord, 0, len(result.Created)+len(result.Merged))
	outbound = append(outbound, result.Created...)
	outbound = append(outbound, result.Merged...)

	if len(outbound) > 0 {
		exportResult, expErr := exp.Export(ctx, outbound, exporterConfig)
		if expErr != nil {
			o.logger.Error("export failed", "exporter", exporterName, "error", expErr.Error())
			result.Report = o.tracker.GenerateReport()
			return result, fmt.Errorf("export via %s: %w", exporterName, expErr)
		}
		result.Export = exportResult
	}

	result.Report = o.tracker.GenerateReport()
	return result, nil
}

// resolvePlugins looks up both plugins, building a configuration
// error with fuzzy suggestions when a name is unknown.
func (o *Orchestrator) resolvePlugins(importerName, exporterName string) (plugin.ImporterSpec, plugin.ExporterSpec, error) {
	var violations []string

	imp, ok := o.registry.GetImporter(importerName)
	if !ok {
		_, suggestions := o.registry.ValidatePluginName(importerName, plugin.KindImporter)
		violations = append(violations, unknownPluginMessage("importer", importerName, suggestions))
	}

	exp, ok := o.registry.GetExporter(exporterName)
	if !ok {
		_, suggestions := o.registry.ValidatePluginName(exporterName, plugin.KindExporter)
		violations = append(violations, unknownPluginMessage("exporter", exporterName, suggestions))
	}

	if len(violations) > 0 {
		return plugin.ImporterSpec{}, plugin.ExporterSpec{}, &domain.ConfigurationError{Violations: violations}
	}
	return imp, exp, nil
}

// unknownPluginMessage formats a resolution failure, including
// suggestions when close names exist.
func unknownPluginMessage(kind, name string, suggestions []string) string {
	msg := fmt.Sprintf("unknown %s %q", kind, name)
	if len(suggestions) > 0 {
		msg += ", did you mean: " + strings.Join(suggestions, ", ")
	}
	return msg
}

// processRecord runs the validate→score→route→record pipeline for one
// raw record. It reports whether the record was routed as a duplicate
// (skip or merge).
func (o *Orchestrator) processRecord(
	imp plugin.ImporterSpec,
	raw map[string]any,
	existing []*domain.CandidateRecord,
	result *RunResult,
) bool {
	externalID := imp.GenerateImportID(raw)
	o.tracker.StartRecordTiming(externalID)

	if v := imp.ValidateData(raw); !v.Valid {
		o.tracker.RecordFailure(externalID, &domain.ProcessingError{
			ExternalID: externalID,
			Stage:      "validate",
			Err:        fmt.Errorf("%s", strings.Join(v.Errors, "; ")),
		})
		return false
	}

	record, err := imp.MapData(raw)
	if err != nil {
		o.tracker.RecordFailure(externalID, &domain.ProcessingError{
			ExternalID: externalID,
			Stage:      "map",
			Err:        err,
		})
		return false
	}
	if record.ExternalID == "" {
		clone := record.Clone()
		clone.ExternalID = externalID
		record = clone
	}

	decision, match := o.route(record, existing)
	switch decision {
	case decisionSkip:
		o.tracker.RecordSkipped(externalID, "duplicate", duplicateInfo(match))
		return true

	case decisionMerge:
		merged := mergeTags(matchRecord(existing, match.CandidateID), record)
		if merged != nil {
			result.Merged = append(result.Merged, merged)
		}
		o.tracker.RecordOther(externalID, "merged into "+match.CandidateID)
		return true

	default:
		result.Created = append(result.Created, record)
		if o.config.CreateMissingArtists {
			result.MissingArtists = appendMissingArtists(result.MissingArtists, record, existing)
		}
		o.tracker.RecordSuccess(externalID, "created")
		return false
	}
}

// route scores the record against the catalog and decides its fate.
func (o *Orchestrator) route(record *domain.CandidateRecord, existing []*domain.CandidateRecord) (string, *similarity.Result) {
	if len(existing) == 0 {
		return decisionCreate, nil
	}

	query := similarity.Query{
		Coordinates: record.Coordinates,
		Title:       record.Title,
		Tags:        record.Tags,
	}
	results := o.engine.ScoreAll(query, existing)
	top := results[0]

	if top.OverallScore >= o.config.DuplicateThreshold {
		o.logger.Debug("duplicate detected", "explanation", similarity.Explain(top))
		return decisionSkip, &top
	}
	if o.config.EnableTagMerging && top.Threshold == similarity.ThresholdWarn {
		return decisionMerge, &top
	}
	return decisionCreate, nil
}

// duplicateInfo captures the winning similarity result for the report.
func duplicateInfo(match *similarity.Result) map[string]any {
	if match == nil {
		return nil
	}
	return map[string]any{
		"candidate_id":  match.CandidateID,
		"overall_score": match.OverallScore,
		"threshold":     match.Threshold,
		"explanation":   similarity.Explain(*match),
	}
}

// matchRecord finds a catalog record by external ID.
func matchRecord(existing []*domain.CandidateRecord, externalID string) *domain.CandidateRecord {
	for _, r := range existing {
		if r.ExternalID == externalID {
			return r
		}
	}
	return nil
}

// mergeTags produces a copy of target with the incoming record's tags
// folded in. Records are never mutated in place.
func mergeTags(target, incoming *domain.CandidateRecord) *domain.CandidateRecord {
	if target == nil {
		return nil
	}

	merged := target.Clone()
	seen := make(map[string]struct{}, len(merged.Tags.List))
	for _, tag := range merged.Tags.List {
		seen[tag] = struct{}{}
	}
	for _, tag := range incoming.Tags.List {
		if _, ok := seen[tag]; !ok {
			merged.Tags.List = append(merged.Tags.List, tag)
			seen[tag] = struct{}{}
		}
	}
	for k, v := range incoming.Tags.Values {
		if merged.Tags.Values == nil {
			merged.Tags.Values = make(map[string]string)
		}
		if _, ok := merged.Tags.Values[k]; !ok {
			merged.Tags.Values[k] = v
		}
	}
	return merged
}

// appendMissingArtists collects artist names from record that no
// catalog entry references yet.
func appendMissingArtists(acc []string, record *domain.CandidateRecord, existing []*domain.CandidateRecord) []string {
	known := make(map[string]struct{})
	for _, e := range existing {
		for _, a := range e.Artists {
			known[strings.ToLower(a)] = struct{}{}
		}
	}
	for _, a := range acc {
		known[strings.ToLower(a)] = struct{}{}
	}

	for _, a := range record.Artists {
		if _, ok := known[strings.ToLower(a)]; !ok {
			acc = append(acc, a)
		}
	}
	return acc
}

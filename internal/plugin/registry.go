package plugin

import (
	"sort"
	"strings"

	"github.com/openartmap/ingest/internal/logger"
)

// Registry stores validated importer and exporter plugins keyed by
// name. It is an explicit session object constructed at startup and
// passed by reference; registration happens before any run starts, so
// steady-state lookups need no locking.
type Registry struct {
	importers map[string]*Entry[ImporterSpec]
	exporters map[string]*Entry[ExporterSpec]
	logger    logger.Interface
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Interface) *Registry {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Registry{
		importers: make(map[string]*Entry[ImporterSpec]),
		exporters: make(map[string]*Entry[ExporterSpec]),
		logger:    log.WithComponent("plugin-registry"),
	}
}

// RegisterImporter validates and stores an importer plugin.
// Re-registering a name replaces the previous entry.
func (r *Registry) RegisterImporter(spec ImporterSpec) ValidationResult {
	result := validateImporter(spec)

	r.importers[spec.Name] = &Entry[ImporterSpec]{
		Name:       spec.Name,
		Plugin:     spec,
		IsValid:    result.IsValid,
		Validation: result,
	}

	if result.IsValid {
		r.logger.Debug("registered importer", "name", spec.Name)
	} else {
		r.logger.Warn("registered invalid importer",
			"name", spec.Name,
			"error_count", len(result.Errors),
		)
	}

	return result
}

// RegisterExporter validates and stores an exporter plugin.
func (r *Registry) RegisterExporter(spec ExporterSpec) ValidationResult {
	result := validateExporter(spec)

	r.exporters[spec.Name] = &Entry[ExporterSpec]{
		Name:       spec.Name,
		Plugin:     spec,
		IsValid:    result.IsValid,
		Validation: result,
	}

	if result.IsValid {
		r.logger.Debug("registered exporter", "name", spec.Name)
	} else {
		r.logger.Warn("registered invalid exporter",
			"name", spec.Name,
			"error_count", len(result.Errors),
		)
	}

	return result
}

// GetImporter returns the named importer if it registered valid.
func (r *Registry) GetImporter(name string) (ImporterSpec, bool) {
	entry, ok := r.importers[name]
	if !ok || !entry.IsValid {
		return ImporterSpec{}, false
	}
	return entry.Plugin, true
}

// GetExporter returns the named exporter if it registered valid.
func (r *Registry) GetExporter(name string) (ExporterSpec, bool) {
	entry, ok := r.exporters[name]
	if !ok || !entry.IsValid {
		return ExporterSpec{}, false
	}
	return entry.Plugin, true
}

// HasImporter reports whether a valid importer is registered.
func (r *Registry) HasImporter(name string) bool {
	entry, ok := r.importers[name]
	return ok && entry.IsValid
}

// HasExporter reports whether a valid exporter is registered.
func (r *Registry) HasExporter(name string) bool {
	entry, ok := r.exporters[name]
	return ok && entry.IsValid
}

// ListImporters returns the names of all valid importers, sorted.
func (r *Registry) ListImporters() []string {
	names := make([]string, 0, len(r.importers))
	for name, entry := range r.importers {
		if entry.IsValid {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ListExporters returns the names of all valid exporters, sorted.
func (r *Registry) ListExporters() []string {
	names := make([]string, 0, len(r.exporters))
	for name, entry := range r.exporters {
		if entry.IsValid {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ImporterEntries returns every importer entry, valid or not, for
// diagnostics display. Sorted by name.
func (r *Registry) ImporterEntries() []*Entry[ImporterSpec] {
	entries := make([]*Entry[ImporterSpec], 0, len(r.importers))
	for _, entry := range r.importers {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// ExporterEntries returns every exporter entry, valid or not, for
// diagnostics display. Sorted by name.
func (r *Registry) ExporterEntries() []*Entry[ExporterSpec] {
	entries := make([]*Entry[ExporterSpec], 0, len(r.exporters))
	for _, entry := range r.exporters {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// ValidatePluginName checks whether name refers to a usable plugin of
// the given kind. The importer kind accepts the "all" sentinel. When
// the name is unknown, fuzzy-matched suggestions (substring
// containment either direction, case-insensitive) are returned.
func (r *Registry) ValidatePluginName(name, kind string) (bool, []string) {
	if kind == KindImporter && name == NameAll {
		return true, nil
	}

	var known []string
	switch kind {
	case KindImporter:
		if r.HasImporter(name) {
			return true, nil
		}
		known = r.ListImporters()
	case KindExporter:
		if r.HasExporter(name) {
			return true, nil
		}
		known = r.ListExporters()
	default:
		return false, nil
	}

	return false, suggestNames(name, known)
}

// suggestNames returns the known names that contain the query or are
// contained by it.
func suggestNames(name string, known []string) []string {
	lowered := strings.ToLower(name)
	var suggestions []string
	for _, candidate := range known {
		cl := strings.ToLower(candidate)
		if strings.Contains(cl, lowered) || strings.Contains(lowered, cl) {
			suggestions = append(suggestions, candidate)
		}
	}
	return suggestions
}

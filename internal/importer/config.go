// Package importer is the composition root of a mass import: it
// validates candidates through an importer plugin, scores them against
// the existing catalog, routes create/merge/skip decisions, tracks
// outcomes, and hands accepted records to an exporter plugin.
package importer

import (
	"fmt"

	"github.com/openartmap/ingest/internal/domain"
)

// Batch size bounds for orchestrated runs.
const (
	MinBatchSize     = 1
	MaxBatchSize     = 10
	DefaultBatchSize = 5
)

// DefaultDuplicateThreshold matches the moderation workflow's cutoff.
const DefaultDuplicateThreshold = 0.7

// Config is the orchestrator configuration surface.
type Config struct {
	// DuplicateThreshold is the overall score at or above which an
	// incoming record is treated as a duplicate.
	DuplicateThreshold float64 `yaml:"duplicate_threshold" env:"IMPORT_DUPLICATE_THRESHOLD"`
	// EnableTagMerging merges tags from warn-tier near-duplicates into
	// the existing entry instead of creating a new one.
	EnableTagMerging bool `yaml:"enable_tag_merging" env:"IMPORT_ENABLE_TAG_MERGING"`
	// CreateMissingArtists collects artist names referenced by created
	// records that the catalog does not know yet.
	CreateMissingArtists bool `yaml:"create_missing_artists" env:"IMPORT_CREATE_MISSING_ARTISTS"`
	// BatchSize groups records for progress logging; processing stays
	// record-by-record.
	BatchSize int `yaml:"batch_size" env:"IMPORT_BATCH_SIZE"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		DuplicateThreshold: DefaultDuplicateThreshold,
		BatchSize:          DefaultBatchSize,
	}
}

// Validate checks the configuration, returning a ConfigurationError
// listing every violation at once.
func (c Config) Validate() error {
	var violations []string

	if c.DuplicateThreshold <= 0 || c.DuplicateThreshold > 1 {
		violations = append(violations,
			fmt.Sprintf("duplicate_threshold must be in (0,1], got %v", c.DuplicateThreshold))
	}
	if c.BatchSize < MinBatchSize || c.BatchSize > MaxBatchSize {
		violations = append(violations,
			fmt.Sprintf("batch_size must be in [%d,%d], got %d", MinBatchSize, MaxBatchSize, c.BatchSize))
	}

	if len(violations) > 0 {
		return &domain.ConfigurationError{Violations: violations}
	}
	return nil
}

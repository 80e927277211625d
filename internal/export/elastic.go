package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/plugin"
)

// DocumentIndexer is the storage surface the api exporter needs.
// Implemented by storage.Store.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, id string, document any) error
}

// elasticConfig is the decoded configuration of the elasticsearch
// exporter.
type elasticConfig struct {
	// Index overrides the default submission index name.
	Index string `mapstructure:"index"`
}

// marshalCompact renders a feature collection without indentation.
func marshalCompact(fc *domain.FeatureCollection) ([]byte, error) {
	return json.Marshal(fc)
}

// NewElasticExporter builds the elasticsearch exporter spec, indexing
// each accepted record as a GeoJSON feature document.
func NewElasticExporter(indexer DocumentIndexer, defaultIndex string, log logger.Interface) plugin.ExporterSpec {
	if log == nil {
		log = logger.NewNoOp()
	}
	log = log.WithComponent("export-elastic")

	decode := func(options map[string]any) (elasticConfig, error) {
		cfg := elasticConfig{Index: defaultIndex}
		if options == nil {
			return cfg, nil
		}
		if err := mapstructure.Decode(options, &cfg); err != nil {
			return cfg, fmt.Errorf("decode elasticsearch exporter options: %w", err)
		}
		if cfg.Index == "" {
			cfg.Index = defaultIndex
		}
		return cfg, nil
	}

	return plugin.ExporterSpec{
		Name:             NameElastic,
		Description:      "indexes accepted records into the submissions index",
		OutputType:       plugin.OutputAPI,
		RequiresNetwork:  true,
		SupportedFormats: []string{"geojson"},
		Metadata:         map[string]any{"version": "1.0.0"},

		Validate: func(config map[string]any) plugin.DataValidation {
			if indexer == nil {
				return plugin.DataValidation{Errors: []string{"elasticsearch store is not configured"}}
			}
			if _, err := decode(config); err != nil {
				return plugin.DataValidation{Errors: []string{err.Error()}}
			}
			return plugin.DataValidation{Valid: true}
		},

		Configure: func(options map[string]any) error {
			_, err := decode(options)
			return err
		},

		Export: func(ctx context.Context, records []*domain.CandidateRecord, config map[string]any) (*plugin.ExportResult, error) {
			cfg, err := decode(config)
			if err != nil {
				return nil, err
			}

			exported := 0
			for _, r := range records {
				if indexErr := indexer.IndexDocument(ctx, cfg.Index, r.ExternalID, r.ToFeature()); indexErr != nil {
					return &plugin.ExportResult{Exported: exported, Destination: cfg.Index},
						fmt.Errorf("index record %s: %w", r.ExternalID, indexErr)
				}
				exported++
			}

			log.Info("records indexed", "index", cfg.Index, "count", exported)
			return &plugin.ExportResult{Exported: exported, Destination: cfg.Index}, nil
		},
	}
}

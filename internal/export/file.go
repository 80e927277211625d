// Package export provides the built-in exporter plugins: a GeoJSON
// file sink, a console table, and an Elasticsearch submission index.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/plugin"
)

// Names of the built-in exporters as registered.
const (
	NameFile    = "geojson-file"
	NameConsole = "console"
	NameElastic = "elasticsearch"
)

// fileConfig is the decoded configuration of the geojson-file
// exporter.
type fileConfig struct {
	// Destination is the output file path.
	Destination string `mapstructure:"destination"`
	// Pretty toggles indented output. On by default.
	Pretty bool `mapstructure:"pretty"`
}

// decodeFileConfig maps loose options into a typed config.
func decodeFileConfig(options map[string]any) (fileConfig, error) {
	cfg := fileConfig{Pretty: true}
	if options == nil {
		return cfg, nil
	}
	if err := mapstructure.Decode(options, &cfg); err != nil {
		return cfg, fmt.Errorf("decode file exporter options: %w", err)
	}
	return cfg, nil
}

// NewFileExporter builds the geojson-file exporter spec. Records are
// written as one GeoJSON FeatureCollection.
func NewFileExporter(log logger.Interface) plugin.ExporterSpec {
	if log == nil {
		log = logger.NewNoOp()
	}
	log = log.WithComponent("export-file")

	return plugin.ExporterSpec{
		Name:             NameFile,
		Description:      "writes accepted records to a GeoJSON FeatureCollection file",
		OutputType:       plugin.OutputFile,
		RequiresNetwork:  false,
		SupportedFormats: []string{"geojson"},
		Metadata:         map[string]any{"version": "1.0.0"},

		Validate: func(config map[string]any) plugin.DataValidation {
			cfg, err := decodeFileConfig(config)
			if err != nil {
				return plugin.DataValidation{Errors: []string{err.Error()}}
			}
			if cfg.Destination == "" {
				return plugin.DataValidation{Errors: []string{"destination is required"}}
			}
			return plugin.DataValidation{Valid: true}
		},

		Configure: func(options map[string]any) error {
			_, err := decodeFileConfig(options)
			return err
		},

		Export: func(_ context.Context, records []*domain.CandidateRecord, config map[string]any) (*plugin.ExportResult, error) {
			cfg, err := decodeFileConfig(config)
			if err != nil {
				return nil, err
			}

			features := make([]*domain.Feature, 0, len(records))
			for _, r := range records {
				features = append(features, r.ToFeature())
			}
			fc := domain.NewFeatureCollection(features)

			var data []byte
			if cfg.Pretty {
				data, err = fc.MarshalIndent()
			} else {
				data, err = marshalCompact(fc)
			}
			if err != nil {
				return nil, fmt.Errorf("marshal features: %w", err)
			}

			if mkErr := os.MkdirAll(filepath.Dir(cfg.Destination), 0o755); mkErr != nil {
				return nil, fmt.Errorf("create output dir: %w", mkErr)
			}
			if writeErr := os.WriteFile(cfg.Destination, data, 0o644); writeErr != nil {
				return nil, fmt.Errorf("write %s: %w", cfg.Destination, writeErr)
			}

			log.Info("records exported", "destination", cfg.Destination, "count", len(records))
			return &plugin.ExportResult{
				Exported:    len(records),
				Destination: cfg.Destination,
			}, nil
		},
	}
}

// Package imports implements the import command: run raw records from
// a file through an importer, score them against the existing catalog,
// and hand the accepted ones to an exporter.
package imports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openartmap/ingest/cmd/common"
	"github.com/openartmap/ingest/internal/export"
	"github.com/openartmap/ingest/internal/importer"
	"github.com/openartmap/ingest/internal/importers"
	"github.com/openartmap/ingest/internal/plugin"
	"github.com/openartmap/ingest/internal/report"
	"github.com/openartmap/ingest/internal/similarity"
	"github.com/openartmap/ingest/internal/storage"
)

type options struct {
	importerName string
	exporterName string
	catalogPath  string
	destination  string
	index        string
	noReport     bool
}

// Command returns the import command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import raw records from a JSON file",
		Long: `Read a JSON array of raw records from a file, validate and map each
record through the selected importer, score it against the existing
catalog for duplicates, and export the newly created records through
the selected exporter. A processing report is written for every run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			return runImport(cmd, app, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.importerName, "importer", "json-feed", "importer plugin to map records with")
	cmd.Flags().StringVar(&opts.exporterName, "exporter", export.NameFile, "exporter plugin to hand created records to")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "GeoJSON file with existing entries to score against")
	cmd.Flags().StringVar(&opts.destination, "output", "", "destination file for the geojson-file exporter")
	cmd.Flags().StringVar(&opts.index, "index", "", "index name for the elasticsearch exporter")
	cmd.Flags().BoolVar(&opts.noReport, "no-report", false, "skip report generation")
	return cmd
}

func runImport(cmd *cobra.Command, app *common.App, inputFile string, opts options) error {
	rawRecords, err := readRecords(inputFile)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(app, opts)
	if err != nil {
		return err
	}

	engine, err := similarity.NewEngine(app.Config.Similarity, app.Logger)
	if err != nil {
		return err
	}
	tracker := report.NewTracker(!opts.noReport, app.Logger)

	orch, err := importer.New(registry, engine, tracker, catalogFor(opts), app.Config.Import, app.Logger)
	if err != nil {
		return err
	}

	result, runErr := orch.Run(
		cmd.Context(),
		opts.importerName,
		opts.exporterName,
		inputFile,
		rawRecords,
		exporterConfig(app, opts),
	)
	// The orchestrator returns the report alongside run errors, so the
	// report still lands on disk when the export fails or the run is
	// cancelled mid-batch.
	if result != nil && !opts.noReport {
		if writeErr := writeReport(app, result.Report); writeErr != nil {
			if runErr == nil {
				return writeErr
			}
			app.Logger.Error("report write failed", "error", writeErr.Error())
		}
	}
	if runErr != nil {
		return runErr
	}

	printSummary(cmd, result)
	return nil
}

// readRecords loads the input file: a JSON array of raw record objects.
func readRecords(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse input file %s: expected a JSON array of objects: %w", path, err)
	}
	return records, nil
}

// buildRegistry registers the built-in plugins: the JSON feed importer,
// one HTML page importer per configured site, and the three exporters.
// The elasticsearch exporter only dials out when selected.
func buildRegistry(app *common.App, opts options) (*plugin.Registry, error) {
	registry := plugin.NewRegistry(app.Logger)

	registry.RegisterImporter(importers.NewJSONFeedImporter("json-feed"))
	for _, site := range app.Config.Sites {
		registry.RegisterImporter(importers.NewHTMLPageImporter(site.Name))
	}

	registry.RegisterExporter(export.NewFileExporter(app.Logger))
	registry.RegisterExporter(export.NewConsoleExporter(os.Stdout, app.Logger))

	if opts.exporterName == export.NameElastic {
		store, err := storage.NewStore(app.Config.Elasticsearch, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("connect to elasticsearch: %w", err)
		}
		registry.RegisterExporter(export.NewElasticExporter(store, app.Config.Elasticsearch.IndexName, app.Logger))
	}
	return registry, nil
}

func catalogFor(opts options) importer.Catalog {
	if opts.catalogPath == "" {
		return importer.EmptyCatalog{}
	}
	return importer.NewFileCatalog(opts.catalogPath)
}

// exporterConfig assembles the per-exporter options map.
func exporterConfig(app *common.App, opts options) map[string]any {
	switch opts.exporterName {
	case export.NameFile:
		destination := opts.destination
		if destination == "" {
			destination = filepath.Join(app.Config.Output.DataDir, opts.importerName+"-import.geojson")
		}
		return map[string]any{"destination": destination, "pretty": true}

	case export.NameElastic:
		index := opts.index
		if index == "" {
			index = app.Config.Elasticsearch.IndexName
		}
		return map[string]any{"index": index}

	default:
		return nil
	}
}

// writeReport persists the processing report as indented JSON under
// the report directory.
func writeReport(app *common.App, rep report.ProcessingReport) error {
	if err := os.MkdirAll(app.Config.Output.ReportDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	name := fmt.Sprintf("import-%s.json", time.Now().Format("20060102-150405"))
	path := filepath.Join(app.Config.Output.ReportDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	app.Logger.Info("report written", "path", path)
	return nil
}

func printSummary(cmd *cobra.Command, result *importer.RunResult) {
	summary := result.Report.Summary

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.SetTitle("Import summary")
	t.AppendRows([]table.Row{
		{"Total records", summary.TotalRecords},
		{"Created", summary.Successful},
		{"Failed", summary.Failed},
		{"Skipped as duplicate", summary.Skipped},
		{"Merged", summary.Other},
		{"Success rate", fmt.Sprintf("%.1f%%", summary.SuccessRate)},
		{"Processing time", summary.ProcessingTime.Round(time.Millisecond).String()},
	})
	t.Render()

	if len(result.MissingArtists) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Missing artists: %v\n", result.MissingArtists)
	}
	if result.Export != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n",
			result.Export.Exported, result.Export.Destination)
	}
}

// Package plugins implements the plugins command: list the registered
// importer and exporter plugins with their validation state.
package plugins

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openartmap/ingest/cmd/common"
	"github.com/openartmap/ingest/internal/export"
	"github.com/openartmap/ingest/internal/importers"
	"github.com/openartmap/ingest/internal/plugin"
	"github.com/openartmap/ingest/internal/storage"
)

// Command returns the plugins command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the available importer and exporter plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			return listPlugins(cmd, app)
		},
	}
}

func listPlugins(cmd *cobra.Command, app *common.App) error {
	registry := plugin.NewRegistry(app.Logger)

	registry.RegisterImporter(importers.NewJSONFeedImporter("json-feed"))
	for _, site := range app.Config.Sites {
		registry.RegisterImporter(importers.NewHTMLPageImporter(site.Name))
	}

	registry.RegisterExporter(export.NewFileExporter(app.Logger))
	registry.RegisterExporter(export.NewConsoleExporter(os.Stdout, app.Logger))

	// The client is constructed without a connectivity check; listing
	// plugins must work offline.
	store, err := storage.NewStoreUnchecked(app.Config.Elasticsearch, app.Logger)
	if err != nil {
		return err
	}
	registry.RegisterExporter(export.NewElasticExporter(store, app.Config.Elasticsearch.IndexName, app.Logger))

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Name", "Description", "Valid", "Problems"})

	for _, entry := range registry.ImporterEntries() {
		t.AppendRow(table.Row{
			plugin.KindImporter, entry.Name, entry.Plugin.Description,
			entry.IsValid, problems(entry.Validation),
		})
	}
	for _, entry := range registry.ExporterEntries() {
		t.AppendRow(table.Row{
			plugin.KindExporter, entry.Name, entry.Plugin.Description,
			entry.IsValid, problems(entry.Validation),
		})
	}

	t.Render()
	return nil
}

// problems flattens validation errors and warnings for display.
func problems(result plugin.ValidationResult) string {
	var parts []string
	for _, e := range result.Errors {
		parts = append(parts, e.Code+": "+e.Message)
	}
	for _, w := range result.Warnings {
		parts = append(parts, "warn "+w.Code+": "+w.Message)
	}
	return strings.Join(parts, "; ")
}

package export

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/plugin"
)

// NewConsoleExporter builds the console exporter spec, rendering
// accepted records as a table on out (stdout when nil).
func NewConsoleExporter(out io.Writer, log logger.Interface) plugin.ExporterSpec {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	log = log.WithComponent("export-console")

	return plugin.ExporterSpec{
		Name:             NameConsole,
		Description:      "renders accepted records as a table on standard output",
		OutputType:       plugin.OutputConsole,
		RequiresNetwork:  false,
		SupportedFormats: []string{"table"},
		Metadata:         map[string]any{"version": "1.0.0"},

		Validate: func(_ map[string]any) plugin.DataValidation {
			return plugin.DataValidation{Valid: true}
		},

		Configure: func(_ map[string]any) error { return nil },

		Export: func(_ context.Context, records []*domain.CandidateRecord, _ map[string]any) (*plugin.ExportResult, error) {
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"External ID", "Title", "Lat", "Lon", "Source"})

			for _, r := range records {
				t.AppendRow(table.Row{
					r.ExternalID,
					r.Title,
					fmt.Sprintf("%.5f", r.Coordinates.Lat),
					fmt.Sprintf("%.5f", r.Coordinates.Lon),
					r.Source,
				})
			}
			t.Render()

			log.Debug("records rendered", "count", len(records))
			return &plugin.ExportResult{Exported: len(records), Destination: "console"}, nil
		},
	}
}

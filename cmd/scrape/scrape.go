// Package scrape implements the scrape command: crawl one configured
// site and write its records as GeoJSON.
package scrape

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openartmap/ingest/cmd/common"
	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/fetch"
	"github.com/openartmap/ingest/internal/importers"
	"github.com/openartmap/ingest/internal/ratelimit"
	"github.com/openartmap/ingest/internal/scraper"
)

// Command returns the scrape command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	var (
		maxPages int
		limit    int
		delay    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "scrape [site]",
		Short: "Crawl a configured site and write its records as GeoJSON",
		Long: `Crawl one of the sites defined in the configuration file, map each
detail page to a candidate record, and write the accepted records to
the output data directory as a GeoJSON FeatureCollection plus a
lightweight index file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			return runScrape(cmd, app, args[0], maxPages, limit, delay)
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many page fetches (0 = unbounded)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many accepted records (0 = unbounded)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "override the configured politeness delay between fetches")
	return cmd
}

func runScrape(cmd *cobra.Command, app *common.App, siteName string, maxPages, limit int, delay time.Duration) error {
	siteConfig, ok := app.Config.Site(siteName)
	if !ok {
		return fmt.Errorf("site %q is not configured; known sites: %v", siteName, siteNames(app))
	}

	if delay > 0 {
		app.Config.RateLimit.Delay = delay
	}

	pageImporter := importers.NewHTMLPageImporter(siteName)
	site, err := scraper.NewHTMLSite(siteConfig, func(id, pageURL, html string) (*domain.CandidateRecord, error) {
		return pageImporter.MapData(map[string]any{"id": id, "url": pageURL, "html": html})
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(app.Config.Output.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	run := scraper.New(
		site,
		fetch.NewClient(app.Config.Fetch, app.Logger),
		ratelimit.New(app.Config.RateLimit.Delay, app.Config.RateLimit.Jitter),
		scraper.NewFileSink(app.Config.Output.DataDir, siteName),
		app.Logger,
	)

	stats, err := run.Execute(cmd.Context(), scraper.Options{MaxPages: maxPages, Limit: limit})
	if err != nil {
		return err
	}

	printStats(cmd, siteName, stats)
	return nil
}

func printStats(cmd *cobra.Command, siteName string, stats scraper.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.SetTitle("Scrape of %s", siteName)
	t.AppendHeader(table.Row{"Total", "Success", "Failed", "Skipped", "Duplicates"})
	t.AppendRow(table.Row{stats.Total, stats.Success, stats.Failed, stats.Skipped, stats.Duplicates})
	t.Render()
}

func siteNames(app *common.App) []string {
	names := make([]string, 0, len(app.Config.Sites))
	for _, site := range app.Config.Sites {
		names = append(names, site.Name)
	}
	return names
}

package scraper_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/ratelimit"
	"github.com/openartmap/ingest/internal/scraper"
)

func listingPage(links ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul>`)
	for _, link := range links {
		fmt.Fprintf(&b, `<li><a class="artwork" href=%q>item</a></li>`, link)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func detailMapper(source string) func(id, pageURL, html string) (*domain.CandidateRecord, error) {
	return func(id, pageURL, _ string) (*domain.CandidateRecord, error) {
		return &domain.CandidateRecord{
			ExternalID:  source + "-" + id,
			Title:       "Artwork " + id,
			Coordinates: domain.Coordinates{Lat: 49.25, Lon: -123.1},
			Source:      source,
			SourceURL:   pageURL,
		}, nil
	}
}

func newHTMLSiteConfig() scraper.HTMLSiteConfig {
	return scraper.HTMLSiteConfig{
		Name:         "gallery",
		BaseURL:      "https://gallery.test",
		ListURL:      "https://gallery.test/art?page=%d",
		LinkSelector: "a.artwork",
	}
}

func TestHTMLSiteCrawlsListingsAndDetails(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://gallery.test/art?page=1": listingPage("/art/one", "/art/two"),
		"https://gallery.test/art?page=2": listingPage("/art/three"),
		// Page 3 repeats page 2; the crawl must stop there.
		"https://gallery.test/art?page=3": listingPage("/art/three"),
		"https://gallery.test/art/one":    "<html></html>",
		"https://gallery.test/art/two":    "<html></html>",
		"https://gallery.test/art/three":  "<html></html>",
	}}

	site, err := scraper.NewHTMLSite(newHTMLSiteConfig(), detailMapper("gallery"))
	require.NoError(t, err)

	run := scraper.New(site, fetcher, ratelimit.New(0, 0), &memorySink{}, logger.NewNoOp())
	stats, err := run.Execute(context.Background(), scraper.Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Success)
	assert.Equal(t, 0, stats.Duplicates)
	// 3 listing fetches + 3 detail fetches.
	assert.Len(t, fetcher.calls, 6)

	ids := make([]string, 0, 3)
	for _, record := range run.Artworks() {
		ids = append(ids, record.ExternalID)
	}
	assert.Equal(t, []string{"gallery-one", "gallery-two", "gallery-three"}, ids)
}

func TestHTMLSiteStopsAtRecordLimit(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://gallery.test/art?page=1": listingPage("/art/one", "/art/two", "/art/three"),
		"https://gallery.test/art/one":    "<html></html>",
		"https://gallery.test/art/two":    "<html></html>",
	}}

	site, err := scraper.NewHTMLSite(newHTMLSiteConfig(), detailMapper("gallery"))
	require.NoError(t, err)

	run := scraper.New(site, fetcher, ratelimit.New(0, 0), &memorySink{}, logger.NewNoOp())
	stats, err := run.Execute(context.Background(), scraper.Options{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Success)
	assert.NotContains(t, fetcher.calls, "https://gallery.test/art/three")
}

func TestHTMLSiteRespectsPageBudget(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://gallery.test/art?page=1": listingPage("/art/one", "/art/two"),
		"https://gallery.test/art/one":    "<html></html>",
	}}

	site, err := scraper.NewHTMLSite(newHTMLSiteConfig(), detailMapper("gallery"))
	require.NoError(t, err)

	run := scraper.New(site, fetcher, ratelimit.New(0, 0), &memorySink{}, logger.NewNoOp())
	stats, err := run.Execute(context.Background(), scraper.Options{MaxPages: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Success)
	assert.Len(t, fetcher.calls, 2)
}

func TestHTMLSiteContinuesPastUnmappablePage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://gallery.test/art?page=1": listingPage("/art/one", "/art/two", "/art/three"),
		"https://gallery.test/art?page=2": listingPage("/art/one"),
		"https://gallery.test/art/one":    "<html></html>",
		"https://gallery.test/art/two":    "<html></html>",
		"https://gallery.test/art/three":  "<html></html>",
	}}

	base := detailMapper("gallery")
	mapper := func(id, pageURL, html string) (*domain.CandidateRecord, error) {
		if id == "two" {
			return nil, fmt.Errorf("no coordinates on page %s", pageURL)
		}
		return base(id, pageURL, html)
	}

	site, err := scraper.NewHTMLSite(newHTMLSiteConfig(), mapper)
	require.NoError(t, err)

	run := scraper.New(site, fetcher, ratelimit.New(0, 0), &memorySink{}, logger.NewNoOp())
	stats, err := run.Execute(context.Background(), scraper.Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, fetcher.calls, "https://gallery.test/art/three")
}

func TestHTMLSiteDeduplicatesEquivalentLinks(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		// Trailing slash, tracking params, and an off-host link all
		// collapse to the single real detail page.
		"https://gallery.test/art?page=1": listingPage(
			"/art/one",
			"/art/one/",
			"/art/one?utm_source=newsletter",
			"https://elsewhere.test/art/other",
		),
		"https://gallery.test/art/one": "<html></html>",
	}}

	site, err := scraper.NewHTMLSite(newHTMLSiteConfig(), detailMapper("gallery"))
	require.NoError(t, err)

	run := scraper.New(site, fetcher, ratelimit.New(0, 0), &memorySink{}, logger.NewNoOp())
	stats, err := run.Execute(context.Background(), scraper.Options{MaxPages: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Success)
	assert.Len(t, fetcher.calls, 2)
	assert.NotContains(t, fetcher.calls, "https://elsewhere.test/art/other")
}

func TestNewHTMLSiteRejectsBadConfig(t *testing.T) {
	config := newHTMLSiteConfig()
	config.ListURL = "https://gallery.test/art" // no page placeholder

	_, err := scraper.NewHTMLSite(config, detailMapper("gallery"))
	assert.ErrorContains(t, err, "list_url")

	config = newHTMLSiteConfig()
	config.LinkSelector = ""
	_, err = scraper.NewHTMLSite(config, detailMapper("gallery"))
	assert.ErrorContains(t, err, "link_selector")

	_, err = scraper.NewHTMLSite(newHTMLSiteConfig(), nil)
	assert.ErrorContains(t, err, "mapper")
}

package scraper_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/ratelimit"
	"github.com/openartmap/ingest/internal/scraper"
)

// fakeFetcher serves canned page bodies keyed by URL.
type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no such page: %s", url)
	}
	return body, nil
}

// memorySink captures what the run drains.
type memorySink struct {
	collection *domain.FeatureCollection
	entries    []scraper.IndexEntry
}

func (s *memorySink) WriteCollection(_ context.Context, fc *domain.FeatureCollection) error {
	s.collection = fc
	return nil
}

func (s *memorySink) WriteIndex(_ context.Context, entries []scraper.IndexEntry) error {
	s.entries = entries
	return nil
}

// listSite submits a fixed list of records, fetching one page per
// record to exercise the rate limiter and page budget.
type listSite struct {
	records []*domain.CandidateRecord
}

func (s *listSite) Name() string { return "listsite" }

func (s *listSite) Scrape(ctx context.Context, run *scraper.Run) error {
	for i, record := range s.records {
		if !run.PageBudgetLeft() {
			return nil
		}
		if _, err := run.Fetch(ctx, fmt.Sprintf("https://example.test/page/%d", i)); err != nil {
			return err
		}
		if err := run.Submit(record); err != nil {
			return err
		}
	}
	return nil
}

func record(id, title string, lat, lon float64) *domain.CandidateRecord {
	return &domain.CandidateRecord{
		ExternalID:  id,
		Title:       title,
		Coordinates: domain.Coordinates{Lat: lat, Lon: lon},
		Source:      "listsite",
	}
}

func pagesFor(n int) map[string]string {
	pages := make(map[string]string, n)
	for i := 0; i < n; i++ {
		pages[fmt.Sprintf("https://example.test/page/%d", i)] = "<html></html>"
	}
	return pages
}

func newRun(site scraper.Site, fetcher scraper.Fetcher, sink scraper.Sink) *scraper.Run {
	return scraper.New(site, fetcher, ratelimit.New(0, 0), sink, logger.NewNoOp())
}

func TestExecuteAccumulatesAndDrains(t *testing.T) {
	site := &listSite{records: []*domain.CandidateRecord{
		record("a", "Angel of Victory", 49.2856, -123.1115),
		record("b", "Digital Orca", 49.2888, -123.1111),
	}}
	sink := &memorySink{}

	run := newRun(site, &fakeFetcher{pages: pagesFor(2)}, sink)
	stats, err := run.Execute(context.Background(), scraper.Options{})

	require.NoError(t, err)
	assert.Equal(t, scraper.Stats{Total: 2, Success: 2}, stats)

	require.NotNil(t, sink.collection)
	require.Len(t, sink.collection.Features, 2)
	assert.Equal(t, "FeatureCollection", sink.collection.Type)
	assert.Equal(t, "a", sink.collection.Features[0].ID)
	// GeoJSON coordinates are [lon, lat].
	assert.InDelta(t, -123.1115, sink.collection.Features[0].Geometry.Coordinates[0], 1e-9)
	assert.InDelta(t, 49.2856, sink.collection.Features[0].Geometry.Coordinates[1], 1e-9)

	require.Len(t, sink.entries, 2)
	assert.Equal(t, "Angel of Victory", sink.entries[0].Title)
}

func TestDuplicatesSkipped(t *testing.T) {
	site := &listSite{records: []*domain.CandidateRecord{
		record("same", "Angel of Victory", 49.28, -123.11),
		record("same", "Angel of Victory", 49.28, -123.11),
		record("same", "Angel of Victory", 49.28, -123.11),
	}}
	sink := &memorySink{}

	run := newRun(site, &fakeFetcher{pages: pagesFor(3)}, sink)
	stats, err := run.Execute(context.Background(), scraper.Options{})

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 2, stats.Skipped)
	assert.Len(t, sink.collection.Features, 1)
}

func TestInvalidRecordsCountedFailed(t *testing.T) {
	site := &listSite{records: []*domain.CandidateRecord{
		record("ok", "Fine", 49.0, -123.0),
		record("untitled", "", 49.0, -123.0),
		record("offmap", "Too Far North", 99.0, -123.0),
	}}
	sink := &memorySink{}

	run := newRun(site, &fakeFetcher{pages: pagesFor(3)}, sink)
	stats, err := run.Execute(context.Background(), scraper.Options{})

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 2, stats.Failed)
}

func TestLimitStopsRun(t *testing.T) {
	var records []*domain.CandidateRecord
	for i := 0; i < 10; i++ {
		records = append(records, record(fmt.Sprintf("r%d", i), "Title", 49.0, -123.0))
	}
	sink := &memorySink{}

	run := newRun(&listSite{records: records}, &fakeFetcher{pages: pagesFor(10)}, sink)
	stats, err := run.Execute(context.Background(), scraper.Options{Limit: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Success)
	// The limit error is internal; the sink still receives the drain.
	assert.Len(t, sink.collection.Features, 3)
}

func TestMaxPagesStopsFetching(t *testing.T) {
	var records []*domain.CandidateRecord
	for i := 0; i < 10; i++ {
		records = append(records, record(fmt.Sprintf("r%d", i), "Title", 49.0, -123.0))
	}
	fetcher := &fakeFetcher{pages: pagesFor(10)}
	sink := &memorySink{}

	run := newRun(&listSite{records: records}, fetcher, sink)
	stats, err := run.Execute(context.Background(), scraper.Options{MaxPages: 4})

	require.NoError(t, err)
	assert.Len(t, fetcher.calls, 4)
	assert.Equal(t, 4, stats.Success)
}

func TestRateLimiterThrottlesFetches(t *testing.T) {
	site := &listSite{records: []*domain.CandidateRecord{
		record("a", "One", 49.0, -123.0),
		record("b", "Two", 49.0, -123.0),
		record("c", "Three", 49.0, -123.0),
	}}

	run := scraper.New(site, &fakeFetcher{pages: pagesFor(3)},
		ratelimit.New(15*time.Millisecond, 0), &memorySink{}, logger.NewNoOp())

	start := time.Now()
	_, err := run.Execute(context.Background(), scraper.Options{})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestRunCannotBeReused(t *testing.T) {
	run := newRun(&listSite{}, &fakeFetcher{pages: pagesFor(0)}, &memorySink{})

	_, err := run.Execute(context.Background(), scraper.Options{})
	require.NoError(t, err)

	_, err = run.Execute(context.Background(), scraper.Options{})
	assert.Error(t, err)
}

func TestFileSinkWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	sink := scraper.NewFileSink(dir, "vancouver")

	fc := domain.NewFeatureCollection([]*domain.Feature{
		record("a", "Angel of Victory", 49.2856, -123.1115).ToFeature(),
	})
	require.NoError(t, sink.WriteCollection(context.Background(), fc))
	require.NoError(t, sink.WriteIndex(context.Background(), []scraper.IndexEntry{
		{ExternalID: "a", Title: "Angel of Victory"},
	}))

	data, err := os.ReadFile(filepath.Join(dir, "vancouver.geojson"))
	require.NoError(t, err)

	var decoded domain.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Features, 1)

	indexData, err := os.ReadFile(filepath.Join(dir, "vancouver-index.json"))
	require.NoError(t, err)

	var entries []scraper.IndexEntry
	require.NoError(t, json.Unmarshal(indexData, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ExternalID)

	// No temp droppings left behind.
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/importer"
)

func TestFileCatalogRoundTrip(t *testing.T) {
	record := &domain.CandidateRecord{
		ExternalID:  "vancouver-1",
		Title:       "East Van Cross",
		Coordinates: domain.Coordinates{Lat: 49.2771, Lon: -123.0697},
		Artists:     []string{"Ken Lum"},
		Tags:        domain.Tags{List: []string{"sculpture"}},
		Source:      "vancouver",
	}

	fc := domain.NewFeatureCollection([]*domain.Feature{record.ToFeature()})
	data, err := fc.MarshalIndent()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vancouver.geojson")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	entries, err := importer.NewFileCatalog(path).Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, "vancouver-1", got.ExternalID)
	assert.Equal(t, "East Van Cross", got.Title)
	assert.InDelta(t, 49.2771, got.Coordinates.Lat, 1e-9)
	assert.InDelta(t, -123.0697, got.Coordinates.Lon, 1e-9)
	assert.Equal(t, []string{"Ken Lum"}, got.Artists)
	assert.Equal(t, []string{"sculpture"}, got.Tags.List)
}

func TestFileCatalogMissingFileIsEmpty(t *testing.T) {
	entries, err := importer.NewFileCatalog(filepath.Join(t.TempDir(), "absent.geojson")).Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileCatalogRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.geojson")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := importer.NewFileCatalog(path).Entries(context.Background())
	assert.ErrorContains(t, err, "parse catalog")
}

package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/export"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/plugin"
)

func sampleRecords() []*domain.CandidateRecord {
	return []*domain.CandidateRecord{
		{
			ExternalID:  "van-1",
			Title:       "Digital Orca",
			Coordinates: domain.Coordinates{Lat: 49.2888, Lon: -123.1111},
			Source:      "vancouver",
			Tags:        domain.Tags{List: []string{"sculpture"}},
		},
		{
			ExternalID:  "van-2",
			Title:       "Angel of Victory",
			Coordinates: domain.Coordinates{Lat: 49.2856, Lon: -123.1115},
			Source:      "vancouver",
		},
	}
}

func TestFileExporterWritesFeatureCollection(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out", "submissions.geojson")

	spec := export.NewFileExporter(logger.NewNoOp())
	require.True(t, spec.Validate(map[string]any{"destination": dest}).Valid)

	result, err := spec.Export(context.Background(), sampleRecords(), map[string]any{"destination": dest})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Exported)
	assert.Equal(t, dest, result.Destination)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)

	var fc domain.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "van-1", fc.Features[0].ID)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
}

func TestFileExporterRequiresDestination(t *testing.T) {
	spec := export.NewFileExporter(logger.NewNoOp())

	v := spec.Validate(nil)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Errors)
}

func TestFileExporterRegistersValid(t *testing.T) {
	r := plugin.NewRegistry(logger.NewNoOp())
	result := r.RegisterExporter(export.NewFileExporter(logger.NewNoOp()))
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings)
}

func TestConsoleExporterRendersTable(t *testing.T) {
	var buf bytes.Buffer
	spec := export.NewConsoleExporter(&buf, logger.NewNoOp())

	result, err := spec.Export(context.Background(), sampleRecords(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Exported)

	out := buf.String()
	assert.Contains(t, out, "Digital Orca")
	assert.Contains(t, out, "van-2")
	assert.Contains(t, out, "EXTERNAL ID")
}

// fakeIndexer implements export.DocumentIndexer.
type fakeIndexer struct {
	docs map[string]any
	err  error
}

func (f *fakeIndexer) IndexDocument(_ context.Context, index, id string, doc any) error {
	if f.err != nil {
		return f.err
	}
	if f.docs == nil {
		f.docs = make(map[string]any)
	}
	f.docs[index+"/"+id] = doc
	return nil
}

func TestElasticExporterIndexesFeatures(t *testing.T) {
	indexer := &fakeIndexer{}
	spec := export.NewElasticExporter(indexer, "submissions", logger.NewNoOp())

	require.True(t, spec.Validate(nil).Valid)

	result, err := spec.Export(context.Background(), sampleRecords(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Exported)
	assert.Equal(t, "submissions", result.Destination)
	assert.Contains(t, indexer.docs, "submissions/van-1")
	assert.Contains(t, indexer.docs, "submissions/van-2")
}

func TestElasticExporterIndexOverride(t *testing.T) {
	indexer := &fakeIndexer{}
	spec := export.NewElasticExporter(indexer, "submissions", logger.NewNoOp())

	_, err := spec.Export(context.Background(), sampleRecords()[:1], map[string]any{"index": "staging"})
	require.NoError(t, err)
	assert.Contains(t, indexer.docs, "staging/van-1")
}

func TestElasticExporterStopsOnIndexError(t *testing.T) {
	indexer := &fakeIndexer{err: errors.New("cluster red")}
	spec := export.NewElasticExporter(indexer, "submissions", logger.NewNoOp())

	result, err := spec.Export(context.Background(), sampleRecords(), nil)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Zero(t, result.Exported)
}

func TestElasticExporterWithoutStoreInvalid(t *testing.T) {
	spec := export.NewElasticExporter(nil, "submissions", logger.NewNoOp())
	v := spec.Validate(nil)
	assert.False(t, v.Valid)
}

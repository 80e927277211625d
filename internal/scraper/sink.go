package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openartmap/ingest/internal/domain"
)

// IndexEntry is one row of the per-entity index sink.
type IndexEntry struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	SourceURL  string `json:"source_url,omitempty"`
}

// Sink persists a finished run: one GeoJSON collection plus a
// per-entity index.
type Sink interface {
	WriteCollection(ctx context.Context, fc *domain.FeatureCollection) error
	WriteIndex(ctx context.Context, entries []IndexEntry) error
}

// FileSink writes the collection and index as JSON files. Writes are
// atomic (temp file + rename) so a crashed run never leaves a
// truncated output behind.
type FileSink struct {
	CollectionPath string
	IndexPath      string
}

// NewFileSink creates a sink writing both outputs under dir, named
// after the source.
func NewFileSink(dir, sourceName string) *FileSink {
	return &FileSink{
		CollectionPath: filepath.Join(dir, sourceName+".geojson"),
		IndexPath:      filepath.Join(dir, sourceName+"-index.json"),
	}
}

// WriteCollection writes the GeoJSON feature collection.
func (s *FileSink) WriteCollection(_ context.Context, fc *domain.FeatureCollection) error {
	data, err := fc.MarshalIndent()
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	return writeAtomic(s.CollectionPath, data)
}

// WriteIndex writes the per-entity index.
func (s *FileSink) WriteIndex(_ context.Context, entries []IndexEntry) error {
	if entries == nil {
		entries = []IndexEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	return writeAtomic(s.IndexPath, data)
}

// writeAtomic writes data to path via a temp file in the same
// directory followed by a rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

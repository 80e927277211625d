package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openartmap/ingest/internal/domain"
)

// EmptyCatalog is the catalog for a first-time import: nothing to
// score against, every record routes to create.
type EmptyCatalog struct{}

func (EmptyCatalog) Entries(context.Context) ([]*domain.CandidateRecord, error) {
	return nil, nil
}

// FileCatalog reads existing entries from a GeoJSON FeatureCollection
// on disk, typically a previous run's submission file.
type FileCatalog struct {
	path string
}

// NewFileCatalog points a catalog at a GeoJSON file. The file is read
// on each Entries call so a long-lived catalog sees updates.
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

func (c *FileCatalog) Entries(_ context.Context) ([]*domain.CandidateRecord, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", c.path, err)
	}

	var fc domain.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", c.path, err)
	}

	entries := make([]*domain.CandidateRecord, 0, len(fc.Features))
	for _, feature := range fc.Features {
		entries = append(entries, feature.ToRecord())
	}
	return entries, nil
}

// StaticCatalog wraps an in-memory record list, mainly for tests and
// for callers that assemble the catalog themselves.
type StaticCatalog []*domain.CandidateRecord

func (c StaticCatalog) Entries(context.Context) ([]*domain.CandidateRecord, error) {
	return c, nil
}

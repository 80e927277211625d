package storage_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/storage"
)

// newTestStore backs a store with an httptest server standing in for
// Elasticsearch.
func newTestStore(t *testing.T, handler http.HandlerFunc) *storage.Store {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The client verifies it is talking to a real cluster.
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := es.NewClient(es.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	return storage.NewStoreWithClient(client, logger.NewNoOp())
}

func TestIndexDocument(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := store.IndexDocument(context.Background(), "submissions", "vancouver-1", map[string]any{"title": "East Van Cross"})
	require.NoError(t, err)

	assert.Equal(t, "/submissions/_doc/vancouver-1", gotPath)
	assert.Equal(t, "East Van Cross", gotBody["title"])
}

func TestIndexDocumentErrorResponse(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"reason":"mapping conflict"}}`))
	})

	err := store.IndexDocument(context.Background(), "submissions", "x", map[string]any{})
	assert.ErrorContains(t, err, "elasticsearch error")
}

func TestIndexDocumentWithoutClient(t *testing.T) {
	store := storage.NewStoreWithClient(nil, logger.NewNoOp())
	err := store.IndexDocument(context.Background(), "submissions", "x", map[string]any{})
	assert.ErrorContains(t, err, "not initialized")
}

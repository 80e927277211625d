// Package storage provides the Elasticsearch submission store used by
// the api exporter.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/openartmap/ingest/internal/logger"
)

// DefaultIndexTimeout bounds a single index operation.
const DefaultIndexTimeout = 10 * time.Second

// Config holds Elasticsearch connection settings.
type Config struct {
	Addresses []string `yaml:"addresses" env:"ELASTICSEARCH_ADDRESSES"`
	Username  string   `yaml:"username" env:"ELASTICSEARCH_USERNAME"`
	Password  string   `yaml:"password" env:"ELASTICSEARCH_PASSWORD"`
	APIKey    string   `yaml:"api_key" env:"ELASTICSEARCH_API_KEY"`
	IndexName string   `yaml:"index_name" env:"ELASTICSEARCH_INDEX_NAME"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if len(c.Addresses) == 0 {
		c.Addresses = []string{"http://localhost:9200"}
	}
	if c.IndexName == "" {
		c.IndexName = "submissions"
	}
}

// Store indexes candidate submissions into Elasticsearch.
type Store struct {
	client *es.Client
	logger logger.Interface
}

// NewStore creates and pings an Elasticsearch-backed store.
func NewStore(cfg Config, log logger.Interface) (*Store, error) {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNoOp()
	}

	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch ping: %s", res.String())
	}

	return &Store{
		client: client,
		logger: log.WithComponent("storage"),
	}, nil
}

// NewStoreUnchecked creates a store without the connectivity ping,
// for callers that only inspect plugin metadata offline.
func NewStoreUnchecked(cfg Config, log logger.Interface) (*Store, error) {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNoOp()
	}

	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Store{client: client, logger: log.WithComponent("storage")}, nil
}

// NewStoreWithClient wraps an existing client. Used in tests with an
// httptest transport.
func NewStoreWithClient(client *es.Client, log logger.Interface) *Store {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Store{client: client, logger: log.WithComponent("storage")}
}

// IndexDocument indexes one document under the given index and ID.
func (s *Store) IndexDocument(ctx context.Context, index, id string, document any) error {
	if s.client == nil {
		return errors.New("elasticsearch client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	res, err := s.client.Index(
		index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(id),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Error("elasticsearch returned error response",
			"error", res.String(),
			"index", index,
			"doc_id", id,
		)
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	s.logger.Debug("document indexed", "index", index, "doc_id", id)
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/openartmap/ingest/internal/fetch"
	"github.com/openartmap/ingest/internal/importer"
	"github.com/openartmap/ingest/internal/logger"
	"github.com/openartmap/ingest/internal/ratelimit"
	"github.com/openartmap/ingest/internal/scraper"
	"github.com/openartmap/ingest/internal/similarity"
	"github.com/openartmap/ingest/internal/storage"
)

// DefaultPath is where the config file is looked up when neither the
// --config flag nor CONFIG_PATH is set.
const DefaultPath = "config.yml"

// RateLimitConfig bounds the politeness delay between page fetches.
type RateLimitConfig struct {
	Delay  time.Duration `yaml:"delay" env:"RATE_LIMIT_DELAY"`
	Jitter time.Duration `yaml:"jitter" env:"RATE_LIMIT_JITTER"`
}

// OutputConfig controls where scrape results and reports land.
type OutputConfig struct {
	// DataDir receives per-source GeoJSON and index files.
	DataDir string `yaml:"data_dir" env:"OUTPUT_DATA_DIR"`
	// ReportDir receives import report JSON files.
	ReportDir string `yaml:"report_dir" env:"OUTPUT_REPORT_DIR"`
}

// Config is the full application configuration.
type Config struct {
	Logging       logger.Config            `yaml:"logging"`
	Fetch         fetch.Config             `yaml:"fetch"`
	RateLimit     RateLimitConfig          `yaml:"rate_limit"`
	Similarity    similarity.Config        `yaml:"similarity"`
	Import        importer.Config          `yaml:"import"`
	Elasticsearch storage.Config           `yaml:"elasticsearch"`
	Output        OutputConfig             `yaml:"output"`
	Sites         []scraper.HTMLSiteConfig `yaml:"sites"`
}

// New returns a config with every section at its defaults.
func New() *Config {
	cfg := &Config{
		Logging: logger.Config{
			Level:    "info",
			Encoding: "console",
		},
		Similarity: similarity.DefaultConfig(),
		Import:     importer.DefaultConfig(),
		RateLimit: RateLimitConfig{
			Delay:  ratelimit.DefaultDelay,
			Jitter: ratelimit.DefaultJitter,
		},
		Output: OutputConfig{
			DataDir:   "data",
			ReportDir: "reports",
		},
	}
	cfg.Fetch.SetDefaults()
	return cfg
}

// Load reads the YAML file at path over the defaults and applies env
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := New()
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns defaults with environment overrides applied, for
// running without a config file.
func FromEnv() (*Config, error) {
	cfg := New()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-section invariants.
func (c *Config) Validate() error {
	if err := c.Similarity.Validate(); err != nil {
		return fmt.Errorf("similarity: %w", err)
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if c.RateLimit.Delay < 0 {
		return fmt.Errorf("rate_limit: delay must not be negative, got %s", c.RateLimit.Delay)
	}
	if c.RateLimit.Jitter < 0 {
		return fmt.Errorf("rate_limit: jitter must not be negative, got %s", c.RateLimit.Jitter)
	}
	if c.Output.DataDir == "" {
		return fmt.Errorf("output: data_dir is required")
	}

	names := make(map[string]struct{}, len(c.Sites))
	for _, site := range c.Sites {
		if site.Name == "" {
			return fmt.Errorf("sites: every site needs a name")
		}
		if _, dup := names[site.Name]; dup {
			return fmt.Errorf("sites: duplicate site name %q", site.Name)
		}
		names[site.Name] = struct{}{}
	}
	return nil
}

// Site returns the named site config.
func (c *Config) Site(name string) (scraper.HTMLSiteConfig, bool) {
	for _, site := range c.Sites {
		if site.Name == name {
			return site, true
		}
	}
	return scraper.HTMLSiteConfig{}, false
}

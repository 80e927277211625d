package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openartmap/ingest/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Encoding)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.InDelta(t, 0.7, cfg.Import.DuplicateThreshold, 1e-9)
	assert.Equal(t, time.Second, cfg.RateLimit.Delay)
	assert.Equal(t, "data", cfg.Output.DataDir)
}

func TestLoadReadsSections(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: warn
  encoding: json
rate_limit:
  delay: 2s
  jitter: 250ms
import:
  duplicate_threshold: 0.8
  batch_size: 10
sites:
  - name: gallery
    base_url: https://gallery.test
    list_url: https://gallery.test/art?page=%d
    link_selector: a.artwork
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Encoding)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.Delay)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimit.Jitter)
	assert.InDelta(t, 0.8, cfg.Import.DuplicateThreshold, 1e-9)
	assert.Equal(t, 10, cfg.Import.BatchSize)

	site, ok := cfg.Site("gallery")
	require.True(t, ok)
	assert.Equal(t, "a.artwork", site.LinkSelector)

	_, ok = cfg.Site("missing")
	assert.False(t, ok)
}

func TestLoadEnvOverridesWin(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("RATE_LIMIT_DELAY", "5s")
	t.Setenv("IMPORT_BATCH_SIZE", "2")

	path := writeConfig(t, "logging:\n  level: debug\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.RateLimit.Delay)
	assert.Equal(t, 2, cfg.Import.BatchSize)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
similarity:
  distance_weight: 0.9
  title_weight: 0.9
  tags_weight: 0.9
`)

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "similarity")
}

func TestLoadRejectsDuplicateSiteNames(t *testing.T) {
	path := writeConfig(t, `
sites:
  - name: gallery
    list_url: https://a.test/p?page=%d
    link_selector: a
  - name: gallery
    list_url: https://b.test/p?page=%d
    link_selector: a
`)

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "duplicate site name")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestPathPrefersEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/ingest/config.yml")
	assert.Equal(t, "/etc/ingest/config.yml", config.Path("config.yml"))

	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yml", config.Path("config.yml"))
}

// Package common holds the setup shared by all subcommands: loading
// the configuration and constructing the logger.
package common

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/openartmap/ingest/internal/config"
	"github.com/openartmap/ingest/internal/logger"
)

// App bundles what every subcommand needs.
type App struct {
	Config *config.Config
	Logger logger.Interface
}

// Setup loads the configuration from cfgFile (falling back to
// CONFIG_PATH and the default location) and builds the logger. With
// debug set, the log level is forced to debug regardless of config.
func Setup(cfgFile string, debug bool) (*App, error) {
	cfg, err := config.Load(config.Path(pathOrDefault(cfgFile)))
	if err != nil {
		// A missing default config file is fine; explicit paths are not.
		if cfgFile == "" && errors.Is(err, fs.ErrNotExist) {
			cfg, err = config.FromEnv()
			if err != nil {
				return nil, fmt.Errorf("load configuration: %w", err)
			}
		} else {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
	}

	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &App{Config: cfg, Logger: log}, nil
}

func pathOrDefault(cfgFile string) string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath
}

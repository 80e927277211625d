// Package cmd implements the command-line interface for the ingest
// tool: scraping registries, importing record files, and inspecting
// the plugin registry.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openartmap/ingest/cmd/imports"
	"github.com/openartmap/ingest/cmd/plugins"
	"github.com/openartmap/ingest/cmd/scrape"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug forces debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Import and deduplicate public-art registry data",
		Long: `ingest pulls artwork records from external registries, scores them
against the existing catalog for duplicates, and writes the accepted
records as GeoJSON submissions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to every
	// command. Missing files are fine.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yml or CONFIG_PATH)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ingest version %s\n", Version)
		},
	})

	rootCmd.AddCommand(scrape.Command(&cfgFile, &debug))
	rootCmd.AddCommand(imports.Command(&cfgFile, &debug))
	rootCmd.AddCommand(plugins.Command(&cfgFile, &debug))
}

// Package cmd implements the command-line interface for the site
// indexer. It provides the root command and subcommands for crawling,
// inspecting configurations and scheduling recurring runs.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/siteindex/cmd/crawl"
	cmdfields "github.com/jonesrussell/siteindex/cmd/fields"
	"github.com/jonesrussell/siteindex/cmd/schedule"
	cmdsites "github.com/jonesrussell/siteindex/cmd/sites"
)

// version is overridden at build time.
var version = "0.9.0"

// Debug enables debug logging for all commands.
var Debug bool

// rootCmd is the root command of the siteindex CLI.
var rootCmd = &cobra.Command{
	Use:   "siteindex",
	Short: "A sitemap-driven site indexing crawler",
	Long: `siteindex discovers documents through the sitemaps of configured
web sites, extracts structured fields from each document and pushes the
resulting records into a search index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	// Parse flags early so the debug flag is known before settings are
	// resolved and loggers are built.
	_ = rootCmd.ParseFlags(os.Args[1:])

	initSettings()

	return rootCmd.ExecuteContext(context.Background())
}

// init wires the global flags and subcommands.
func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("siteindex version %s\n", version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(cmdsites.Command())
	rootCmd.AddCommand(cmdfields.Command())
	rootCmd.AddCommand(schedule.Command())
}

// initSettings configures the ambient application settings: log level
// and encoding and the HTTP timeout, overridable through the
// environment.
func initSettings() {
	viper.SetEnvPrefix("SITEINDEX")
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_encoding", "console")
	viper.SetDefault("http_timeout", "30s")

	if Debug || os.Getenv("SITEINDEX_DEBUG") != "" {
		viper.Set("log_level", "debug")
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/artpar/contentgate/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "contentgate",
	Short: "Headless CMS serving declarative content collections",
	Long: `contentgate serves content collections (posts, users, media and any
YAML-defined collection) over a JSON REST API with access control,
validation and admin layout metadata.

Quick start:
  contentgate serve      # Start the API server
  contentgate schema     # Print collection definitions
  contentgate validate   # Validate configuration and collections
  contentgate posts list # Manage documents from the terminal`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
}

// loadConfig loads the config file, falling back to CONTENTGATE_* variables
// when the file does not exist.
func loadConfig() (*config.Config, error) {
	return config.LoadWithFallback(cfgFile)
}

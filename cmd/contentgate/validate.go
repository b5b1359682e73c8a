package main

import (
	"fmt"
	"os"

	"github.com/artpar/contentgate/collections"
	"github.com/artpar/contentgate/config"
	"github.com/artpar/contentgate/core/registry"
	"github.com/artpar/contentgate/core/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and collections before deployment",
	Long: `Validate the contentgate configuration and collection definitions.

Checks:
  - YAML syntax is valid
  - Settings are within range
  - Every collection definition is valid
  - Relationship and upload fields point at loaded collections

Examples:
  contentgate validate
  contentgate validate --config /etc/contentgate/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	var (
		cfg *config.Config
		err error
	)
	if _, statErr := os.Stat(cfgFile); statErr == nil {
		cfg, err = config.Load(cfgFile)
	} else {
		fmt.Fprintf(out, "  - No config file, using environment\n")
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)
	fmt.Fprintf(out, "  %s Database: %s\n", checkMark, cfg.Database.DSN)
	fmt.Fprintf(out, "  %s Listen: %s\n", checkMark, cfg.Server.Addr())

	reg := registry.New()
	for _, col := range collections.All() {
		if err := reg.Register(col); err != nil {
			return fmt.Errorf("built-in collection %q: %w", col.Slug, err)
		}
	}

	if cfg.Collections.Dir != "" {
		parsed, err := schema.ParseDir(cfg.Collections.Dir)
		if err != nil {
			fmt.Fprintf(out, "  %s Collections in %s\n", crossMark, cfg.Collections.Dir)
			return err
		}
		for _, col := range parsed {
			if err := reg.Register(col); err != nil {
				fmt.Fprintf(out, "  %s Collection %s\n", crossMark, col.Slug)
				return err
			}
		}
	}

	if err := reg.VerifyRelations(); err != nil {
		fmt.Fprintf(out, "  %s Relations\n", crossMark)
		return err
	}

	for _, col := range reg.List() {
		fmt.Fprintf(out, "  %s Collection %s (%d fields)\n", checkMark, col.Slug, len(col.Fields))
	}

	fmt.Fprintf(out, "\nConfiguration is valid.\n")
	return nil
}

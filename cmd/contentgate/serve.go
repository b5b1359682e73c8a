package main

import (
	"context"
	"fmt"
	"os"

	"github.com/artpar/contentgate/bootstrap"
	"github.com/artpar/contentgate/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the contentgate API server.

The server will:
  - Load configuration from contentgate.yaml (or --config)
  - Or load configuration from CONTENTGATE_* environment variables
  - Open the database and create collection tables
  - Create the admin user on first run
  - Serve /api/{collection}, /api/_schema, /health and /metrics

Environment variables (for Docker deployments):
  CONTENTGATE_DATABASE_DSN      - Database path (default: contentgate.db)
  CONTENTGATE_SERVER_PORT       - Server port (default: 3000)
  CONTENTGATE_AUTH_JWT_SECRET   - Token signing secret
  CONTENTGATE_ADMIN_EMAIL       - Admin email for first-run bootstrap
  CONTENTGATE_ADMIN_PASSWORD    - Admin password for first-run bootstrap
  CONTENTGATE_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  contentgate serve
  contentgate serve --config /etc/contentgate/config.yaml
  contentgate serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	holder, err := newHolder()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := bootstrap.New(ctx, holder, bootstrap.Options{})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return app.Run(ctx)
}

// newHolder watches the config file when hot reload is on and the file
// exists; otherwise the configuration is fixed for the process lifetime.
func newHolder() (*config.Holder, error) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "config").Logger()

	if _, err := os.Stat(cfgFile); err == nil && hotReload {
		return config.NewHolder(cfgFile, logger)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return config.NewStaticHolder(cfg, logger), nil
}

package main

import (
	"context"
	"io"

	"github.com/artpar/contentgate/bootstrap"
	"github.com/artpar/contentgate/collections"
	"github.com/artpar/contentgate/config"
	"github.com/artpar/contentgate/core/channel/cli"
	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/runtime"
	"github.com/rs/zerolog"
)

func init() {
	ch := cli.New(rootCmd, openRuntime)
	for _, col := range collections.All() {
		if err := ch.Register(convention.Derive(col)); err != nil {
			panic(err)
		}
	}
}

// openRuntime opens the configured database for a single admin command.
// Logging is discarded so command output stays clean.
func openRuntime(ctx context.Context) (*runtime.Runtime, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	holder := config.NewStaticHolder(cfg, zerolog.Nop())
	app, err := bootstrap.New(ctx, holder, bootstrap.Options{LogOutput: io.Discard})
	if err != nil {
		return nil, nil, err
	}
	return app.Runtime, app.Shutdown, nil
}

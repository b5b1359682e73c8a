// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/contentgate/adapters/auth"
	"github.com/artpar/contentgate/adapters/clock"
	"github.com/artpar/contentgate/adapters/hasher"
	"github.com/artpar/contentgate/adapters/idgen"
	"github.com/artpar/contentgate/adapters/metrics"
	"github.com/artpar/contentgate/collections"
	"github.com/artpar/contentgate/config"
	httpchannel "github.com/artpar/contentgate/core/channel/http"
	"github.com/artpar/contentgate/core/runtime"
	"github.com/artpar/contentgate/core/storage"
	"github.com/artpar/contentgate/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger   zerolog.Logger
	Config   *config.Holder
	Store    *storage.SQLiteStore
	Runtime  *runtime.Runtime
	HTTP     *httpchannel.Channel
	Metrics  *metrics.Collector
	Registry *prometheus.Registry
}

// Options provides optional overrides for application initialization.
type Options struct {
	// LogOutput receives log lines. Defaults to stdout.
	LogOutput io.Writer

	// Clock defaults to the wall clock.
	Clock ports.Clock

	// IDs defaults to UUIDv7 identifiers.
	IDs ports.IDGenerator
}

// New creates and initializes the application: storage, collections,
// the HTTP channel and the first admin user.
func New(ctx context.Context, holder *config.Holder, opts Options) (*App, error) {
	cfg := holder.Get()
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.IDs == nil {
		opts.IDs = idgen.UUID{}
	}

	logger := NewLogger(cfg.Logging, opts.LogOutput)
	logger.Info().Str("version", Version).Msg("initializing contentgate")

	a := &App{
		Logger:   logger,
		Config:   holder,
		Registry: prometheus.NewRegistry(),
	}
	a.Metrics = metrics.NewWithRegistry(a.Registry)
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := storage.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.Store = store

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = auth.GenerateSecret()
		logger.Warn().Msg("auth.jwt_secret not set, using a random secret; tokens will not survive a restart")
	}

	a.Runtime = runtime.New(store, runtime.Config{
		Clock:  opts.Clock,
		IDs:    opts.IDs,
		Hasher: hasher.NewBcrypt(cfg.Auth.BcryptCost),
		Tokens: auth.NewTokenService(secret, cfg.Auth.TokenTTL, opts.Clock),
		Logger: logger.With().Str("component", "runtime").Logger(),
	})

	httpOpts := httpchannel.Options{
		Addr:           cfg.Server.Addr(),
		AuthCollection: cfg.Auth.Collection,
		Metrics:        a.Metrics,
		Logger:         logger.With().Str("component", "http").Logger(),
	}
	if cfg.Metrics.Enabled {
		httpOpts.Gatherer = a.Registry
	}
	a.HTTP = httpchannel.New(a.Runtime, httpOpts)

	if err := a.init(ctx, cfg); err != nil {
		store.Close()
		return nil, err
	}

	holder.SetMetrics(a.Metrics)
	holder.OnChange(func(old, new *config.Config) {
		ApplyLevel(new.Logging.Level)
	})

	return a, nil
}

func (a *App) init(ctx context.Context, cfg *config.Config) error {
	if err := a.Runtime.RegisterChannel(a.HTTP); err != nil {
		return fmt.Errorf("register http channel: %w", err)
	}

	if err := LoadCollections(ctx, a.Runtime, cfg.Collections.Dir); err != nil {
		return err
	}
	for _, col := range a.Runtime.Registry().List() {
		a.Logger.Info().Str("collection", col.Slug).Int("fields", len(col.Fields)).Msg("collection loaded")
	}
	a.Metrics.Collections.Set(float64(len(a.Runtime.Registry().List())))

	RegisterHooks(a.Runtime, a.Metrics, a.Logger)

	if err := SeedAdmin(ctx, a.Runtime, cfg.Auth, a.Logger); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

// LoadCollections loads the built-in collections, then the YAML ones found
// in dir, and seals the runtime.
func LoadCollections(ctx context.Context, rt *runtime.Runtime, dir string) error {
	for _, col := range collections.All() {
		if err := rt.LoadCollection(ctx, col); err != nil {
			return fmt.Errorf("load collection %q: %w", col.Slug, err)
		}
	}

	if dir != "" {
		if err := rt.LoadCollectionsFromDir(ctx, dir); err != nil {
			return err
		}
	}

	if err := rt.Seal(); err != nil {
		return fmt.Errorf("seal collections: %w", err)
	}
	return nil
}

// SeedAdmin creates the configured admin when the auth collection is empty.
func SeedAdmin(ctx context.Context, rt *runtime.Runtime, cfg config.AuthConfig, logger zerolog.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	existing, err := rt.Find(ctx, cfg.Collection, runtime.Input{
		Query:          runtime.Query{Limit: 1},
		OverrideAccess: true,
	})
	if err != nil {
		return err
	}
	if existing.List.TotalDocs > 0 {
		logger.Debug().Int64("users", existing.List.TotalDocs).Msg("users exist, skipping admin seed")
		return nil
	}

	data := map[string]any{
		"email":    cfg.AdminEmail,
		"password": cfg.AdminPassword,
	}
	col, err := rt.Collection(cfg.Collection)
	if err != nil {
		return err
	}
	if _, ok := col.Field("role"); ok {
		data["role"] = collections.RoleAdmin
	}

	created, err := rt.Create(ctx, cfg.Collection, runtime.Input{Data: data, OverrideAccess: true})
	if err != nil {
		return err
	}

	logger.Info().Str("id", created.ID).Str("email", cfg.AdminEmail).Msg("admin user created")
	return nil
}

// Start starts the channels and config watchers without blocking.
func (a *App) Start(ctx context.Context) error {
	if err := a.Runtime.Start(ctx); err != nil {
		return err
	}

	if err := a.Config.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch disabled")
	}
	a.Config.WatchSignals()
	return nil
}

// Run starts the application and blocks until ctx is cancelled or an
// interrupt arrives, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	a.Logger.Info().Msg("shutting down")

	return a.Shutdown()
}

// Shutdown stops channels and closes the database.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Get().Server.ShutdownTimeout)
	defer cancel()

	a.Config.Stop()

	var errs []error
	if err := a.Runtime.Stop(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("channel stop error")
		errs = append(errs, err)
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
			errs = append(errs, err)
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

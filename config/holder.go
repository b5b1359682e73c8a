package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/artpar/contentgate/adapters/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to configuration with hot reload support.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	metrics  *metrics.Collector
	watcher  *fsnotify.Watcher
	onChange []func(old, new *Config)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder creates a new config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		config: cfg,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// NewStaticHolder wraps a configuration that has no backing file.
// Reload is a no-op.
func NewStaticHolder(cfg *Config, logger zerolog.Logger) *Holder {
	return &Holder{config: cfg, logger: logger, stopCh: make(chan struct{})}
}

// SetMetrics records reloads in m.
func (h *Holder) SetMetrics(m *metrics.Collector) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics = m
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Path returns the watched file, empty for static holders.
func (h *Holder) Path() string {
	return h.path
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	if h.path == "" {
		return nil
	}
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		if m := h.collector(); m != nil {
			m.ConfigReloadErrors.Inc()
		}
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := append([]func(old, new *Config){}, h.onChange...)
	m := h.metrics
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(oldCfg, newCfg)
	}

	if m != nil {
		m.ConfigReloads.Inc()
		m.ConfigLastReload.SetToCurrentTime()
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

func (h *Holder) collector() *metrics.Collector {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.metrics
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(old, new *Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// WatchFile starts watching the config file for changes.
// Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	if h.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			// atomic saves show up as create
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	for _, field := range RestartRequired(old, new) {
		h.logger.Warn().Str("field", field).Msg("changed setting requires a restart")
	}
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"logging.level",
	}
}

// RestartRequired lists the settings that differ between old and new but
// only take effect on restart.
func RestartRequired(old, new *Config) []string {
	var fields []string
	check := func(name string, changed bool) {
		if changed {
			fields = append(fields, name)
		}
	}

	check("server.host", old.Server.Host != new.Server.Host)
	check("server.port", old.Server.Port != new.Server.Port)
	check("database.dsn", old.Database.DSN != new.Database.DSN)
	check("auth.jwt_secret", old.Auth.JWTSecret != new.Auth.JWTSecret)
	check("auth.token_ttl", old.Auth.TokenTTL != new.Auth.TokenTTL)
	check("auth.collection", old.Auth.Collection != new.Auth.Collection)
	check("collections.dir", old.Collections.Dir != new.Collections.Dir)
	check("logging.format", old.Logging.Format != new.Logging.Format)
	check("metrics.enabled", old.Metrics.Enabled != new.Metrics.Enabled)

	return fields
}

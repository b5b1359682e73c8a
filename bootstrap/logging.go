package bootstrap

import (
	"io"
	"time"

	"github.com/artpar/contentgate/config"
	"github.com/rs/zerolog"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// NewLogger builds the application logger and applies the global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	ApplyLevel(cfg.Level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// ApplyLevel sets the global log level. Unknown levels fall back to info.
func ApplyLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// Package logger builds the zerolog logger used across the ingest engine.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/sequoia-archive/voyage-ingest/internal/config"
)

// New returns a configured zerolog.Logger. Development environments get a
// human-readable console writer and debug level; everything else logs JSON
// at the configured level.
func New(cfg *config.Config) zerolog.Logger {
	var out zerolog.ConsoleWriter
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
		lvl = zerolog.DebugLevel
		zerolog.SetGlobalLevel(lvl)
		return zerolog.New(out).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

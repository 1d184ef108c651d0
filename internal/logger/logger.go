// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger configures the process-wide zerolog logger. Progress and
// diagnostics go to stderr so stdout stays free for piping.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// Formats accepted by Setup.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config holds logging configuration.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // console, json
	Out    io.Writer
}

// DefaultConfig returns info-level console logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatConsole,
		Out:    os.Stderr,
	}
}

// Setup installs the global logger. An unknown level or format is a
// types.ErrConfiguration error.
func Setup(cfg Config) error {
	lvl := strings.ToLower(strings.TrimSpace(cfg.Level))
	if lvl == "" {
		lvl = "info"
	}
	level, err := zerolog.ParseLevel(lvl)
	if err != nil {
		return types.NewError(types.ErrConfiguration, "logger.Setup",
			fmt.Sprintf("invalid log level %q", cfg.Level), nil)
	}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	case FormatJSON:
	default:
		return types.NewError(types.ErrConfiguration, "logger.Setup",
			fmt.Sprintf("invalid log format %q (expected console or json)", cfg.Format), nil)
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// WithComponent returns a logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/cfi/selfservice/internal/config"
)

// NewLogger creates the root zerolog.Logger for a binary. Non-empty
// deployment fields are attached to every event.
func NewLogger(cfg *config.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.DevMode {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return newLogger(cfg, out)
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	ctx := zerolog.New(out).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.RegionName != "" {
		ctx = ctx.Str("region", cfg.RegionName)
	}
	if cfg.AccessRequestsTable != "" {
		ctx = ctx.Str("table", cfg.AccessRequestsTable)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}

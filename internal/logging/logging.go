// Package logging configures the process-global zerolog logger used by
// every cmd/ binary: call sites log straight off the global logger
// (log.Info()/log.Error()) rather than threading a *zerolog.Logger through
// every call site.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/config"
)

// Init sets the global zerolog logger per cfg: "console" gives a
// human-readable writer for local runs, anything else (including "json" or
// "") keeps zerolog's default structured JSON output.
func Init(cfg config.LoggingConfig, service string) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	log.Logger = logger.With().Timestamp().Str("service", service).Logger()
}

// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global level and replaces log.Logger with a JSON logger
// tagged with service. Unknown levels fall back to info. When console is
// true output is human-readable instead of JSON.
func Init(level, service string, console bool) {
	InitWriter(os.Stdout, level, service, console)
}

// InitWriter is Init writing to w.
func InitWriter(w io.Writer, level, service string, console bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger()
}

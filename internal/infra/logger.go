package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logger type passed between packages.
type Logger = zerolog.Logger

// NewLogger returns a JSON logger tagged with service. Development gets a
// console writer at debug level. LOG_LEVEL overrides the level.
func NewLogger(appEnv, service string) Logger {
	dev := appEnv == "development"

	level := zerolog.InfoLevel
	var out io.Writer = os.Stdout
	if dev {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	if parsed, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", service).Logger()
}

func NopLogger() Logger {
	return zerolog.Nop()
}

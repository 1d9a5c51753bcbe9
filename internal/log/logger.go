package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the API logger. Production writes JSON lines; everything else gets the
// console writer at debug level.
func New(environment string) zerolog.Logger {
	level := "debug"
	if environment == "production" {
		level = "info"
	}
	return newLogger(os.Stdout, environment, level).With().Str("service", "api").Logger()
}

// NewWorker builds the worker logger with an explicit level.
func NewWorker(environment, level string) zerolog.Logger {
	return newLogger(os.Stdout, environment, level).With().Str("service", "worker").Logger()
}

func newLogger(out io.Writer, environment, level string) zerolog.Logger {
	if environment != "production" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	zerolog.SetGlobalLevel(ParseLevel(level))

	return zerolog.New(out).With().
		Timestamp().
		Str("env", environment).
		Logger()
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Unknown level strings fall back to
// info. With pretty set, output goes through the console writer for
// local development.
func New(level string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Caller().
		Logger()
}

// NewWithWriter builds a logger against an arbitrary writer so tests
// can capture output.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

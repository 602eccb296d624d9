package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger, or a human readable one when debug is set.
func New(out io.Writer, debug bool) zerolog.Logger {
	if debug {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(out).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
}

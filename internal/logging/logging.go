// internal/logging/logging.go
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	Level   string // trace, debug, info, warn, error; defaults to info
	JSON    bool   // emit JSON instead of console output
	NoColor bool
	Out     io.Writer // defaults to stderr
}

// New builds a zerolog logger with timestamps attached.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, NoColor: opts.NoColor}
	}
	return zerolog.New(out).Level(parseLevel(opts.Level)).With().Timestamp().Logger()
}

// Nop returns a disabled logger for components constructed without one.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// TruncateURL limits a URL to 100 characters for log output.
func TruncateURL(url string) string {
	if len(url) > 100 {
		return url[:100] + "..."
	}
	return url
}

package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the process logger. Level comes from SCREENLOG_LOG_LEVEL
// when level is empty; unknown values fall back to info.
func New(level string) zerolog.Logger {
	if level == "" {
		level = os.Getenv("SCREENLOG_LOG_LEVEL")
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(parseLevel(level)).
		With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

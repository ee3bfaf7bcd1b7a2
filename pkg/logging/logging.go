// Package logging builds the colorized slog handler used by prflow.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// ParseLevel converts a textual log level into a slog.Level. Unknown values
// fall back to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a logger writing tint-formatted records to w (stderr
// when nil). Colors are disabled when noColor is set.
func NewLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	})

	return slog.New(handler)
}

// Level picks the effective level: verbose forces debug, otherwise the
// configured level applies.
func Level(configured string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return ParseLevel(configured)
}

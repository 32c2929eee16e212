package app

import (
	"io"
	"log/slog"
	"slices"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// parseLevel accepts only the names listed in logLevels; slog's own offsets
// such as "info+2" are rejected.
func parseLevel(name string) (slog.Level, bool) {
	if !slices.Contains(logLevels, name) {
		return slog.LevelInfo, false
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// newLogger builds an isolated logger; the global default is left alone.
// Debug output carries source locations.
func newLogger(levelName, format string, w io.Writer) *slog.Logger {
	level, _ := parseLevel(levelName)
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

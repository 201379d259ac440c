// Package log holds the structured-logging conventions shared by the
// tracker binaries: the component field names, a LOG_LEVEL parser, and
// a fixed-size ring of recent records served by the debug endpoint.
package log

import (
	"log/slog"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

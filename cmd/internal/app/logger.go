package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger builds the process-wide JSON logger and installs it as the
// slog default. Unknown level names fall back to info rather than
// failing startup.
func NewLogger(level string) *slog.Logger {
	return newLoggerTo(os.Stdout, level)
}

func newLoggerTo(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
	}))
	slog.SetDefault(log)
	return log
}

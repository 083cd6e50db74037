// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr as the default slog logger.
// Verbose lowers the level to Debug, which is where unmapped backend events
// are reported.
func Setup(verbose bool) *slog.Logger {
	return SetupWithWriter(os.Stderr, verbose)
}

// SetupWithWriter is Setup with an explicit output, used by tests.
func SetupWithWriter(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log
}

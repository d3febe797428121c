// Package logging configures the process-wide slog logger.
//
// The CLI owns stdout for agent output, so human-readable logs go to stderr
// and an optional JSON log file captures everything for debugging. Both
// destinations are fed through a single fanout handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Setup installs the default slog logger. When logFile is non-empty a JSON
// handler is added that records at debug level regardless of the console
// level. It returns a closer for the log file, which may be nil.
func Setup(level string, logFile string) (io.Closer, error) {
	consoleLevel := parseLevel(level)
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel})

	if logFile == "" {
		slog.SetDefault(slog.New(console))
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(slogmulti.Fanout(console, fileHandler)))
	return file, nil
}

// Logger returns a component-scoped logger derived from the default.
func Logger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// parseLevel maps a level name to a slog level, defaulting to warn so the
// interactive TUI stays quiet unless asked otherwise.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

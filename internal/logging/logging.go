// Package logging builds the slog loggers used across coursebot.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// New returns a logger writing to w. Debug mode uses the colored
// PrettyHandler at debug level; otherwise records are JSON at info level.
func New(w io.Writer, debug bool) *slog.Logger {
	if debug {
		return slog.New(NewPrettyHandler(w, PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Setup builds the process logger writing to stderr and, when logFile is
// set, appending to that file as well. The returned close function releases
// the file.
func Setup(logFile string, debug bool) (*slog.Logger, func() error, error) {
	if logFile == "" {
		return New(os.Stderr, debug), func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
	}

	return New(io.MultiWriter(os.Stderr, f), debug), f.Close, nil
}

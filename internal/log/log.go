// Package log provides structured logging for focusd.
//
// Everything goes to stderr: worker processes reserve stdout for the
// record stream, so a log line on stdout would corrupt the framing.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.Mutex
	level  = new(slog.LevelVar)
	logger *slog.Logger
)

// Init configures the global logger. Valid levels are "debug",
// "info", "warn" and "error"; anything else falls back to info.
// Calling Init again only adjusts the level.
func Init(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build()
		slog.SetDefault(logger)
	}
}

// L returns the global logger, initializing it at info level on first
// use.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build()
		slog.SetDefault(logger)
	}
	return logger
}

func build() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if os.Getenv("FOCUSD_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

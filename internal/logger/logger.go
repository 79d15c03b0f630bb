// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger configures the process-wide slog logger for llmchat.
//
// The TUI owns the terminal, so logs go to a file by default
// (~/.llmchat/llmchat.log). Verbose mode switches the sink to stderr.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Config selects the log level, format and sink.
type Config struct {
	// Level is debug, info, warn or error. LOG_LEVEL overrides it.
	Level string
	// Format is "text" or "json". LOG_FORMAT overrides it.
	Format string
	// File is the log file path. LOG_FILE overrides it. When both are
	// empty, logs go to DataDir/llmchat.log.
	File    string
	DataDir string
	// Stderr forces logging to stderr (the --verbose flag).
	Stderr bool
}

// Init installs the global slog logger and returns a close function for
// the underlying file, if one was opened.
func Init(cfg Config) func() error {
	level := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	format := cfg.Format
	if env := os.Getenv("LOG_FORMAT"); env != "" {
		format = env
	}

	w, closeFn := openSink(cfg)
	slog.SetDefault(slog.New(NewHandler(w, level, format)))
	return closeFn
}

// NewHandler builds a text or JSON handler at the given level.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func openSink(cfg Config) (io.Writer, func() error) {
	noop := func() error { return nil }
	if cfg.Stderr {
		return os.Stderr, noop
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = cfg.File
	}
	if logFile == "" && cfg.DataDir != "" {
		logFile = filepath.Join(cfg.DataDir, "llmchat.log")
	}
	if logFile == "" {
		return io.Discard, noop
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
		return io.Discard, noop
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return io.Discard, noop
	}
	return f, f.Close
}

// ParseLevel maps a level name to an slog level, defaulting to info.
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

// NewRequestLogger returns a logger tagged with a unique request_id for
// one completion request.
func NewRequestLogger() *slog.Logger {
	return NewRequestLoggerFrom(slog.Default())
}

// NewRequestLoggerFrom is NewRequestLogger for a logger other than the
// default. A nil base falls back to the default logger.
func NewRequestLoggerFrom(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("request_id", uuid.Must(uuid.NewV7()).String())
}

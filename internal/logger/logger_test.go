// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, "debug", "json"))
	log.Debug("frame skipped", "bytes", 12)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "frame skipped", rec["msg"])
	assert.Equal(t, float64(12), rec["bytes"])
}

func TestNewHandler_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, "warn", "text"))
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestInit_WritesToDataDirFile(t *testing.T) {
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	closeFn := Init(Config{Level: "info", DataDir: dir})
	slog.Info("stream finished", "deltas", 3)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(filepath.Join(dir, "llmchat.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "stream finished")
}

func TestInit_EnvFileOverride(t *testing.T) {
	target := filepath.Join(t.TempDir(), "custom", "out.log")
	t.Setenv("LOG_FILE", target)
	t.Setenv("LOG_FORMAT", "json")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	closeFn := Init(Config{DataDir: t.TempDir()})
	slog.Info("hello")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "{"))
}

func TestNewRequestLogger_HasRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(NewHandler(&buf, "info", "text")))

	NewRequestLogger().Info("request")
	assert.Contains(t, buf.String(), "request_id=")
}

func TestNewRequestLoggerFrom_UsesBase(t *testing.T) {
	var base, def bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(NewHandler(&def, "info", "text")))

	NewRequestLoggerFrom(slog.New(NewHandler(&base, "info", "text"))).Info("request")
	assert.Contains(t, base.String(), "request_id=")
	assert.Empty(t, def.String())

	NewRequestLoggerFrom(nil).Info("fallback")
	assert.Contains(t, def.String(), "request_id=")
}

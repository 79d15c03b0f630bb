// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateHome points the home directory at a temp dir so Load never sees
// the developer's real ~/.llmchat.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, env := range []string{
		"LLMCHAT_BASE_URL", "LLMCHAT_MODEL", "LLMCHAT_API_KEY", "LLMCHAT_STORE",
		"LLMCHAT_DATA_DIR", "LLMCHAT_POSTGRES_URL", "LLMCHAT_LOG_LEVEL", "LLMCHAT_METRICS_ADDR",
	} {
		t.Setenv(env, "")
	}
	return home
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Chat.TitleWords)
	assert.Equal(t, DefaultErrorMessage, cfg.Chat.ErrorMessage)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 15*time.Second, cfg.API.ListTimeout())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}

func TestLoad_TOML(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".llmchat")
	require.NoError(t, os.MkdirAll(dir, 0700))

	content := `
[api]
base_url = "http://localhost:8080/v1/"
default_model = "org/model-a"

[storage]
backend = "SQLite"

[chat]
title_words = 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/v1", cfg.API.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "org/model-a", cfg.API.DefaultModel)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 6, cfg.Chat.TitleWords)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultErrorMessage, cfg.Chat.ErrorMessage)
	assert.Equal(t, 15, cfg.UI.RenderFPS)
}

func TestLoadFromPath_JSON(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api":{"base_url":"http://127.0.0.1:9000/v1"},"log":{"level":"DEBUG"}}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/v1", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromPath_Malformed(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api\nbase_url ="), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("LLMCHAT_BASE_URL", "http://env.example/v1")
	t.Setenv("LLMCHAT_MODEL", "env/model")
	t.Setenv("LLMCHAT_STORE", "badger")
	t.Setenv("LLMCHAT_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://env.example/v1", cfg.API.BaseURL)
	assert.Equal(t, "env/model", cfg.API.DefaultModel)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "sk-test", cfg.API.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad backend", func(c *Config) { c.Storage.Backend = "mongo" }, "storage.backend"},
		{"postgres without url", func(c *Config) { c.Storage.Backend = "postgres" }, "storage.postgres_url"},
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.base_url"},
		{"title words too large", func(c *Config) { c.Chat.TitleWords = 100 }, "chat.title_words"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad metrics addr", func(c *Config) { c.Metrics.Addr = "nope" }, "metrics.addr"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "expected ValidateErrors, got %T", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestValidate_PostgresWithURL(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "postgres"
	cfg.Storage.PostgresURL = "postgres://localhost/llmchat"
	cfg.Metrics.Addr = "127.0.0.1:9090"
	assert.NoError(t, cfg.Validate())
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("api.default_model", "org/x"))
	require.NoError(t, cfg.Set("chat.title_words", "5"))
	require.NoError(t, cfg.Set("ui.markdown", "false"))

	v, err := cfg.Get("api.default_model")
	require.NoError(t, err)
	assert.Equal(t, "org/x", v)
	assert.Equal(t, 5, cfg.Chat.TitleWords)
	assert.False(t, cfg.UI.Markdown)

	_, err = cfg.Get("api.nope")
	assert.Error(t, err)
	_, err = cfg.Get("api")
	assert.Error(t, err, "sections are not values")
	assert.Error(t, cfg.Set("chat.title_words", "many"))
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	assert.Contains(t, keys, "api.base_url")
	assert.Contains(t, keys, "storage.postgres_url")
	assert.Contains(t, keys, "chat.title_words")
	assert.NotContains(t, keys, "api")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestString_RedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.API.APIKey = "sk-secret"
	s := cfg.String()
	assert.NotContains(t, s, "sk-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "sk-secret", cfg.API.APIKey, "original untouched")
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.API.DefaultModel = "org/round-trip"
	cfg.Storage.Backend = "sqlite"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "org/round-trip", loaded.API.DefaultModel)
	assert.Equal(t, "sqlite", loaded.Storage.Backend)
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

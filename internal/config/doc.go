// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for llmchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and struct-tag validation.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - APIConfig: Completion service endpoint, key and model preferences
//   - StorageConfig: Persistence backend selection
//   - ChatConfig: Title rule and failure message
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (LLMCHAT_*)
//   - ~/.llmchat/config.toml
//   - ~/.llmchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := api.NewClient(cfg.API.BaseURL, api.WithAPIKey(cfg.API.APIKey))
package config

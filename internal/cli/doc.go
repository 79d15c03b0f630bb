// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the llmchat command tree.
//
// # Commands
//
//	llmchat                      Full-screen chat (same as "llmchat tui")
//	llmchat repl                 Line-mode chat with history
//	llmchat ask TEXT             One message, streamed to stdout
//	llmchat models               List the service's models
//	llmchat sessions ...         list, show, rename, delete, search, export
//	llmchat config ...           show, get, set, path, keys
//
// # Global Flags
//
//	--config PATH        Config file (default ~/.llmchat/config.toml)
//	--base-url URL       Completion service root
//	--model ID           Model for new requests
//	--store NAME         Storage backend: file, sqlite, badger, postgres, memory
//	--data-dir DIR       Directory for file-based stores
//	--metrics-addr ADDR  Serve Prometheus metrics on ADDR
//	-v, --verbose        Log to stderr at debug level
//
// Errors are printed as "Error: ..." on stderr and exit with status 1.
package cli

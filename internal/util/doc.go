// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across llmchat.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateWidth: display-width aware truncation for terminal columns
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - SingleLine: collapses newlines for one-line previews
//
// # Usage
//
//	// Persist the chat history without ever leaving a half-written file
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a session title into a sidebar column
//	title := util.TruncateWidth(session.Title, 24)
package util

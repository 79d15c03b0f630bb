// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat sessions to files in several formats.
//
// # Supported Formats
//
//   - markdown: human-readable transcript with YAML frontmatter
//   - json: the session exactly as it is persisted, re-importable
//   - yaml: the session with readable timestamps
//   - html: standalone page with embedded CSS
//
// # Usage
//
//	exp, err := export.New(export.FormatMarkdown, nil)
//	path, err := export.ToFile(sess, exp, opts)
package export

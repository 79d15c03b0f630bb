// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/llmchat/internal/session"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the session in its persisted shape, so the output
// can be read back as a session.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export renders c as indented JSON.
func (e *JSONExporter) Export(c session.ChatSession) ([]byte, error) {
	if c.Messages == nil {
		c.Messages = []session.Message{}
	}
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

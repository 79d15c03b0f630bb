// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/llmchat/internal/session"
)

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter writes the session with RFC 3339 timestamps.
type YAMLExporter struct {
	options *Options
}

// NewYAMLExporter creates a YAML exporter.
func NewYAMLExporter(opts *Options) *YAMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &YAMLExporter{options: opts}
}

type yamlMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

type yamlDocument struct {
	ID         string        `yaml:"id"`
	Title      string        `yaml:"title"`
	Model      string        `yaml:"model"`
	CreatedAt  time.Time     `yaml:"created_at"`
	ExportedAt time.Time     `yaml:"exported_at,omitempty"`
	Messages   []yamlMessage `yaml:"messages"`
}

// Export renders c as YAML.
func (e *YAMLExporter) Export(c session.ChatSession) ([]byte, error) {
	doc := yamlDocument{
		ID:        c.ID,
		Title:     c.Title,
		Model:     c.Model,
		CreatedAt: c.Created().UTC(),
		Messages:  make([]yamlMessage, 0, len(c.Messages)),
	}
	if e.options.IncludeMetadata {
		doc.ExportedAt = e.options.now().UTC()
	}
	for _, m := range c.Messages {
		doc.Messages = append(doc.Messages, yamlMessage{Role: string(m.Role), Content: m.Content})
	}
	return yaml.Marshal(doc)
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}

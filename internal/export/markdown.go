// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/llmchat/internal/session"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

type frontmatter struct {
	Title     string `yaml:"title"`
	Model     string `yaml:"model,omitempty"`
	Date      string `yaml:"date"`
	Messages  int    `yaml:"messages"`
	Exported  string `yaml:"exported"`
	Generator string `yaml:"generator"`
}

// Export renders c as Markdown.
func (e *MarkdownExporter) Export(c session.ChatSession) ([]byte, error) {
	if len(c.Messages) == 0 {
		return nil, ErrEmptySession
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		fm, err := yaml.Marshal(frontmatter{
			Title:     c.Title,
			Model:     c.Model,
			Date:      c.Created().Format(time.RFC3339),
			Messages:  len(c.Messages),
			Exported:  e.options.now().Format(time.RFC3339),
			Generator: "llmchat",
		})
		if err != nil {
			return nil, fmt.Errorf("frontmatter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(fm)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(c.Title))

	if e.options.IncludeMetadata {
		if c.Model != "" {
			fmt.Fprintf(&sb, "- **Model**: %s\n", c.Model)
		}
		fmt.Fprintf(&sb, "- **Created**: %s\n", formatTimestamp(c.Created()))
		fmt.Fprintf(&sb, "- **Messages**: %d\n\n", len(c.Messages))
	}

	for i, msg := range c.Messages {
		fmt.Fprintf(&sb, "### %s\n\n", roleLabel(msg.Role))
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			content = "_(empty)_"
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")
		if i < len(c.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "\n", " ")
	return r.Replace(s)
}

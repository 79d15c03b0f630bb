// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/jeranaias/llmchat/internal/session"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports sessions to a standalone HTML page. All content is
// escaped by html/template.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates an HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

type htmlPage struct {
	Title    string
	Model    string
	Created  string
	Exported string
	Theme    string
	Metadata bool
	Messages []htmlMessage
}

type htmlMessage struct {
	Role  string
	Label string
	Parts []contentPart
}

// contentPart is a paragraph or a fenced code block.
type contentPart struct {
	Code bool
	Lang string
	Text string
}

// Export renders c as HTML.
func (e *HTMLExporter) Export(c session.ChatSession) ([]byte, error) {
	if len(c.Messages) == 0 {
		return nil, ErrEmptySession
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}
	page := htmlPage{
		Title:    c.Title,
		Model:    c.Model,
		Created:  formatTimestamp(c.Created()),
		Exported: e.options.now().Format("January 2, 2006 at 3:04 PM"),
		Theme:    theme,
		Metadata: e.options.IncludeMetadata,
		Messages: make([]htmlMessage, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		page.Messages = append(page.Messages, htmlMessage{
			Role:  strings.ToLower(string(m.Role)),
			Label: roleLabel(m.Role),
			Parts: splitContent(m.Content),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

// splitContent separates fenced code blocks from prose paragraphs. An
// unclosed fence runs to the end of the message.
func splitContent(content string) []contentPart {
	var parts []contentPart
	var para, code []string
	inCode := false
	lang := ""

	flushPara := func() {
		if text := strings.TrimSpace(strings.Join(para, "\n")); text != "" {
			parts = append(parts, contentPart{Text: text})
		}
		para = para[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inCode && strings.HasPrefix(trimmed, "```"):
			flushPara()
			inCode = true
			lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			code = code[:0]
		case inCode && trimmed == "```":
			parts = append(parts, contentPart{Code: true, Lang: lang, Text: strings.Join(code, "\n")})
			inCode = false
		case inCode:
			code = append(code, line)
		case trimmed == "":
			flushPara()
		default:
			para = append(para, line)
		}
	}
	if inCode {
		parts = append(parts, contentPart{Code: true, Lang: lang, Text: strings.Join(code, "\n")})
	}
	flushPara()
	return parts
}

// =============================================================================
// TEMPLATE
// =============================================================================

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta name="generator" content="llmchat">
    <title>{{.Title}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        .dark-theme { --bg: #1a1b26; --panel: #24283b; --text: #c0caf5; --muted: #565f89; --border: #414868; --user: #1f2335; --accent: #7aa2f7; }
        .light-theme { --bg: #ffffff; --panel: #f7f8fa; --text: #24292e; --muted: #6a737d; --border: #e1e4e8; --user: #f6f8fa; --accent: #0366d6; }
        body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; color: var(--text); background: var(--bg); padding: 20px; }
        .container { max-width: 900px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; }
        header { padding: 28px 32px; border-bottom: 2px solid var(--border); }
        header h1 { font-size: 26px; margin-bottom: 8px; }
        .metadata { font-size: 14px; color: var(--muted); display: flex; gap: 16px; flex-wrap: wrap; }
        .message { padding: 20px 32px; border-bottom: 1px solid var(--border); }
        .user-message { background: var(--user); }
        .role-label { font-weight: 600; color: var(--accent); margin-bottom: 8px; display: block; }
        .message-content p { margin-bottom: 10px; white-space: pre-wrap; }
        pre { background: var(--bg); padding: 12px; border-radius: 6px; overflow-x: auto; margin-bottom: 10px; }
        code { font-family: "SF Mono", Monaco, "Fira Code", monospace; font-size: 14px; }
        .code-lang { font-size: 12px; color: var(--muted); }
        footer { padding: 16px 32px; font-size: 13px; color: var(--muted); text-align: center; }
    </style>
</head>
<body class="{{.Theme}}-theme">
    <div class="container">
        <header>
            <h1>{{.Title}}</h1>
{{- if .Metadata}}
            <div class="metadata">
{{- if .Model}}
                <span><strong>Model:</strong> {{.Model}}</span>
{{- end}}
                <span><strong>Created:</strong> {{.Created}}</span>
                <span><strong>Messages:</strong> {{len .Messages}}</span>
            </div>
{{- end}}
        </header>
        <main>
{{- range .Messages}}
            <div class="message {{.Role}}-message">
                <span class="role-label">{{.Label}}</span>
                <div class="message-content">
{{- range .Parts}}
{{- if .Code}}
                    {{if .Lang}}<div class="code-lang">{{.Lang}}</div>{{end}}<pre><code class="language-{{.Lang}}">{{.Text}}</code></pre>
{{- else}}
                    <p>{{.Text}}</p>
{{- end}}
{{- end}}
                </div>
            </div>
{{- end}}
        </main>
        <footer>Exported from llmchat on {{.Exported}}</footer>
    </div>
</body>
</html>
`))

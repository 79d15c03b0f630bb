// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/llmchat/internal/session"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func sampleSession() session.ChatSession {
	return session.ChatSession{
		ID:        "7d9f2c1e-3a4b-4c5d-8e6f-123456789abc",
		Title:     "Hello World in...",
		Model:     "deepseek-ai/DeepSeek-V3-0324",
		CreatedAt: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC).UnixMilli(),
		Messages: []session.Message{
			session.UserMessage("Hello World in Python?"),
			session.AssistantMessage("Sure:\n\n```python\nprint(\"Hello, World!\")\n```\n\nThat prints the message."),
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"md": FormatMarkdown, "Markdown": FormatMarkdown,
		"json": FormatJSON, "yml": FormatYAML, "YAML": FormatYAML,
		"htm": FormatHTML, " html ": FormatHTML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(sampleSession())
	require.NoError(t, err)
	md := string(out)

	require.True(t, strings.HasPrefix(md, "---\n"))
	parts := strings.SplitN(md, "---\n", 3)
	require.Len(t, parts, 3)

	var fm frontmatter
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))
	assert.Equal(t, "Hello World in...", fm.Title)
	assert.Equal(t, 2, fm.Messages)
	assert.Equal(t, fixedNow.Format(time.RFC3339), fm.Exported)

	assert.Contains(t, md, "# Hello World in...")
	assert.Contains(t, md, "### User\n\nHello World in Python?")
	assert.Contains(t, md, "```python\nprint(\"Hello, World!\")\n```")
}

func TestMarkdownExporter_TitleInjection(t *testing.T) {
	c := sampleSession()
	c.Title = "Evil\ntitle: injected # [x]"
	out, err := NewMarkdownExporter(testOptions()).Export(c)
	require.NoError(t, err)

	parts := strings.SplitN(string(out), "---\n", 3)
	var fm map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))
	assert.Equal(t, "Evil\ntitle: injected # [x]", fm["title"])
	assert.Contains(t, string(out), `# Evil title: injected \# \[x\]`)
}

func TestExporters_RejectEmptySession(t *testing.T) {
	c := sampleSession()
	c.Messages = nil
	_, err := NewMarkdownExporter(nil).Export(c)
	assert.ErrorIs(t, err, ErrEmptySession)
	_, err = NewHTMLExporter(nil).Export(c)
	assert.ErrorIs(t, err, ErrEmptySession)

	out, err := NewJSONExporter().Export(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"messages": []`)
}

func TestJSONExporter_MatchesPersistedShape(t *testing.T) {
	c := sampleSession()
	out, err := NewJSONExporter().Export(c)
	require.NoError(t, err)

	var back session.ChatSession
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, c, back)
	assert.Contains(t, string(out), `"createdAt": 1741953600000`)
}

func TestYAMLExporter(t *testing.T) {
	out, err := NewYAMLExporter(testOptions()).Export(sampleSession())
	require.NoError(t, err)

	var doc yamlDocument
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "deepseek-ai/DeepSeek-V3-0324", doc.Model)
	assert.True(t, doc.CreatedAt.Equal(time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)))
	require.Len(t, doc.Messages, 2)
	assert.Equal(t, "assistant", doc.Messages[1].Role)
	assert.True(t, strings.HasPrefix(doc.Messages[1].Content, "Sure:"))
}

func TestHTMLExporter_EscapesContent(t *testing.T) {
	c := sampleSession()
	c.Title = "<b>bold</b>"
	c.Messages = append(c.Messages,
		session.UserMessage("<script>alert('xss')</script>"),
		session.AssistantMessage("```<script>\ncode & more\n```"),
	)

	out, err := NewHTMLExporter(testOptions()).Export(c)
	require.NoError(t, err)
	page := string(out)

	assert.NotContains(t, page, "<script>alert")
	assert.NotContains(t, page, "<b>bold</b>")
	assert.Contains(t, page, "&lt;script&gt;alert")
	assert.Contains(t, page, "code &amp; more")
	assert.Contains(t, page, `class="dark-theme"`)
	assert.Contains(t, page, `<code class="language-python">`)
}

func TestSplitContent(t *testing.T) {
	parts := splitContent("intro line\nsecond line\n\n```go\nfunc main() {}\n```\n\ntail\n```\nunclosed")
	require.Len(t, parts, 4)
	assert.Equal(t, contentPart{Text: "intro line\nsecond line"}, parts[0])
	assert.Equal(t, contentPart{Code: true, Lang: "go", Text: "func main() {}"}, parts[1])
	assert.Equal(t, contentPart{Text: "tail"}, parts[2])
	assert.Equal(t, contentPart{Code: true, Text: "unclosed"}, parts[3])
}

func TestToFile(t *testing.T) {
	opts := testOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "exports")

	exp, err := New(FormatMarkdown, opts)
	require.NoError(t, err)
	path, err := ToFile(sampleSession(), exp, opts)
	require.NoError(t, err)

	assert.Equal(t, "chat_Hello_World_in_20250314_150926.md", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Hello World in...")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Simple Title", "Simple_Title"},
		{"a/b\\c:d*e?f", "a-b-c-d-e-f"},
		{"Tell me about quantum...", "Tell_me_about_quantum"},
		{"", "session"},
		{"...", "session"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sanitizeFilename(tc.in), tc.in)
	}
}

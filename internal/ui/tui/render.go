// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// maxCachedRenders bounds the render cache; it is cleared when full.
const maxCachedRenders = 256

// markdown renders assistant replies with glamour at the current width.
// Finished messages are cached by content; partial ones are not.
type markdown struct {
	style   string
	enabled bool
	width   int
	tr      *glamour.TermRenderer
	cache   map[string]string
	plain   lipgloss.Style
}

func newMarkdown(style string, enabled bool, plain lipgloss.Style) *markdown {
	return &markdown{
		style:   style,
		enabled: enabled,
		cache:   make(map[string]string),
		plain:   plain,
	}
}

// setWidth changes the wrap width, dropping the renderer and cache.
func (md *markdown) setWidth(w int) {
	if w == md.width {
		return
	}
	md.width = w
	md.tr = nil
	md.cache = make(map[string]string)
}

// renderPlain wraps content without markdown processing.
func (md *markdown) renderPlain(content string) string {
	if md.width <= 0 {
		return content
	}
	return md.plain.Width(md.width).Render(content)
}

// render formats content as markdown, falling back to plain text when
// markdown is disabled or glamour fails.
func (md *markdown) render(content string, cache bool) string {
	if !md.enabled || md.width <= 0 || strings.TrimSpace(content) == "" {
		return md.renderPlain(content)
	}
	if out, ok := md.cache[content]; ok {
		return out
	}

	if md.tr == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(md.style),
			glamour.WithWordWrap(md.width),
		)
		if err != nil {
			md.enabled = false
			return md.renderPlain(content)
		}
		md.tr = tr
	}

	out, err := md.tr.Render(content)
	if err != nil {
		return md.renderPlain(content)
	}
	out = strings.Trim(out, "\n")

	if cache {
		if len(md.cache) >= maxCachedRenders {
			md.cache = make(map[string]string)
		}
		md.cache[content] = out
	}
	return out
}

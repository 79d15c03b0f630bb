// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestMarkdown_CachesFinishedReplies(t *testing.T) {
	md := newMarkdown("notty", true, lipgloss.NewStyle())
	md.setWidth(40)

	out := md.render("# Title\n\nSome **bold** text.", true)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
	assert.Len(t, md.cache, 1)

	md.render("partial **repl", false)
	assert.Len(t, md.cache, 1, "partial replies are not cached")

	md.setWidth(60)
	assert.Empty(t, md.cache, "width change drops the cache")
}

func TestMarkdown_DisabledIsPlain(t *testing.T) {
	md := newMarkdown("notty", false, lipgloss.NewStyle())
	md.setWidth(40)
	assert.Equal(t, "**not rendered**", strings.TrimSpace(md.render("**not rendered**", true)))
	assert.Empty(t, md.cache)
}

func TestMarkdown_BlankContent(t *testing.T) {
	md := newMarkdown("notty", true, lipgloss.NewStyle())
	md.setWidth(40)
	assert.Empty(t, strings.TrimSpace(md.render("", true)))
	assert.Empty(t, md.cache)
}

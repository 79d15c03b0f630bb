// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/llmchat/internal/api"
	"github.com/jeranaias/llmchat/internal/session"
	"github.com/jeranaias/llmchat/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	inputStyle := m.theme.InputBox
	if m.input.Focused() {
		inputStyle = m.theme.InputBoxFocused
	}
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Conversation.Render(m.viewport.View()),
		inputStyle.Render(m.input.View()),
	)

	body := main
	if m.sidebarWidth > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), main)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.statusView(),
		m.help.View(m.keys),
	)
}

// sidebarView lists sessions, newest first, with the current one
// highlighted.
func (m *Model) sidebarView() string {
	w := m.sidebarWidth
	rows := []string{m.theme.SidebarTitle.Render(util.TruncateWidth("Chats", w))}

	if len(m.snap.Sessions) == 0 {
		rows = append(rows, m.theme.SessionMeta.Render(util.TruncateWidth("No chats yet", w-1)))
	}

	// Title row plus its bottom margin.
	budget := m.height - 3
	for _, c := range m.snap.Sessions {
		if len(rows) >= budget {
			rows = append(rows, m.theme.SessionMeta.Render(
				util.TruncateWidth(fmt.Sprintf("+%d more", len(m.snap.Sessions)-(len(rows)-1)), w-1)))
			break
		}
		rows = append(rows, m.sessionRow(c, w))
	}

	height := m.height - 2
	if height < 1 {
		height = 1
	}
	return m.theme.Sidebar.Width(w).Height(height).Render(strings.Join(rows, "\n"))
}

func (m *Model) sessionRow(c session.ChatSession, w int) string {
	marker := "  "
	if c.ID == m.streamingID {
		marker = "● "
	}
	// One column goes to the item's left padding.
	text := util.PadWidth(util.TruncateWidth(marker+util.SingleLine(c.Title), w-1), w-1)
	if c.ID == m.snap.CurrentID {
		return m.theme.SessionSelected.Render(text)
	}
	return m.theme.SessionItem.Render(text)
}

// conversation renders the current session's messages.
func (m *Model) conversation() string {
	cur, ok := m.snap.Current()
	if !ok || len(cur.Messages) == 0 {
		return m.theme.Muted.Render("Type a message and press enter to start a conversation.")
	}

	var b strings.Builder
	last := len(cur.Messages) - 1
	for i, msg := range cur.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.theme.RoleLabel(string(msg.Role)))
		b.WriteString("\n")

		partial := i == last && cur.ID == m.streamingID && m.state.Busy()
		switch {
		case msg.Role == session.RoleAssistant && partial && msg.Content == "":
			b.WriteString(m.theme.Muted.Render("thinking..."))
		case msg.Role == session.RoleAssistant:
			b.WriteString(m.md.render(msg.Content, !partial))
		default:
			b.WriteString(m.md.renderPlain(msg.Content))
		}
	}
	return b.String()
}

// statusView shows the model, request state and the latest notice.
func (m *Model) statusView() string {
	var parts []string

	if m.state.Busy() {
		parts = append(parts, m.spinner.View()+" "+m.state.String())
	} else {
		parts = append(parts, m.theme.Success.Render("ready"))
	}
	parts = append(parts, m.theme.Model.Render(m.modelLabel()))
	if m.renaming {
		parts = append(parts, m.theme.Warning.Render("renaming: enter to save, esc to cancel"))
	}

	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p) + 3
	}
	if m.notice != "" {
		room := m.width - used - 2
		text := util.TruncateWidth(util.SingleLine(m.notice), room)
		if m.noticeIsErr {
			parts = append(parts, m.theme.Error.Render(text))
		} else {
			parts = append(parts, m.theme.Muted.Render(text))
		}
	}

	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, " · "))
}

func (m *Model) modelLabel() string {
	if m.model == "" {
		return "no model"
	}
	return api.DisplayName(m.model)
}

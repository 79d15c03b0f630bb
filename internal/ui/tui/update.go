// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/llmchat/internal/chat"
	"github.com/jeranaias/llmchat/internal/session"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.ready = true
		m.refresh()
		return m, nil

	case mailMsg:
		for _, inner := range msg {
			cmds = append(cmds, m.handleMail(inner))
		}
		cmds = append(cmds, m.mail.listen())
		return m, tea.Batch(cmds...)

	case snapshotMsg, eventMsg:
		return m, m.handleMail(msg)

	case sendDoneMsg:
		m.cancel.cancel()
		m.reportSend(msg.err)
		return m, m.scheduleRefresh()

	case flushMsg:
		m.flushPending = false
		if m.dirty {
			m.refresh()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleMail applies one store snapshot or orchestrator event.
func (m *Model) handleMail(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = msg.snap
		return m.scheduleRefresh()

	case eventMsg:
		e := msg.event
		switch e.Kind {
		case chat.EventStateChanged:
			m.state = e.State
			if e.State.Busy() {
				m.streamingID = e.SessionID
			} else {
				m.streamingID = ""
			}
			return m.scheduleRefresh()
		case chat.EventDelta, chat.EventCompleted, chat.EventFailed:
			return m.scheduleRefresh()
		case chat.EventModelsLoaded:
			m.models = e.Models
			if len(e.Models) == 0 {
				m.setNotice("The service offers no models.", true)
			}
		case chat.EventModelsFailed:
			m.setNotice("Could not load models: "+e.Err.Error(), true)
		case chat.EventModelSelected:
			m.model = e.Model
		}
	}
	return nil
}

// reportSend turns the result of a Send call into a status notice.
func (m *Model) reportSend(err error) {
	switch {
	case err == nil:
		m.clearNotice()
	case errors.Is(err, chat.ErrEmptyMessage):
	case errors.Is(err, chat.ErrNoModel):
		m.setNotice("Pick a model first (ctrl+t).", true)
	case errors.Is(err, chat.ErrBusy):
		m.setNotice("A reply is still streaming.", true)
	case errors.Is(err, context.Canceled):
		m.setNotice("Stopped.", false)
	case errors.Is(err, session.ErrSessionNotFound):
		m.setNotice("Chat deleted while the reply was streaming.", false)
	default:
		m.setNotice(err.Error(), true)
	}
}

// =============================================================================
// KEYS
// =============================================================================

// handleKey processes bindings; unhandled keys go to the input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel.cancel()
		return tea.Quit, true

	case key.Matches(msg, m.keys.Cancel):
		if m.renaming {
			m.endRename()
			return nil, true
		}
		if m.cancel.cancel() {
			m.setNotice("Stopping...", false)
		}
		return nil, true

	case key.Matches(msg, m.keys.Send):
		if m.renaming {
			return m.applyRename(), true
		}
		return m.submit(), true

	case key.Matches(msg, m.keys.Newline):
		m.input.InsertString("\n")
		return nil, true

	case key.Matches(msg, m.keys.NewSession):
		m.endRename()
		m.orch.NewSession()
		m.clearNotice()
		return nil, true

	case key.Matches(msg, m.keys.PrevSession):
		m.stepSession(-1)
		return nil, true

	case key.Matches(msg, m.keys.NextSession):
		m.stepSession(1)
		return nil, true

	case key.Matches(msg, m.keys.Rename):
		cur, ok := m.snap.Current()
		if !ok {
			return nil, true
		}
		m.renaming = true
		m.input.Placeholder = "New title"
		m.input.SetValue(cur.Title)
		return nil, true

	case key.Matches(msg, m.keys.Delete):
		id := m.snap.CurrentID
		if id == "" {
			return nil, true
		}
		m.endRename()
		if err := m.orch.DeleteSession(id); err != nil {
			m.setNotice(err.Error(), true)
		}
		return nil, true

	case key.Matches(msg, m.keys.NextModel):
		return m.stepModel(), true

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd, true

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		m.refresh()
		return nil, true
	}
	return nil, false
}

// submit sends the input text.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if m.cancel.active() || m.state.Busy() {
		m.setNotice("A reply is still streaming.", true)
		return nil
	}
	m.input.Reset()
	m.clearNotice()
	return m.sendCmd(text)
}

func (m *Model) applyRename() tea.Cmd {
	title := strings.TrimSpace(m.input.Value())
	id := m.snap.CurrentID
	m.endRename()
	if id == "" || title == "" {
		return nil
	}
	if err := m.orch.RenameSession(id, title); err != nil {
		m.setNotice(err.Error(), true)
	}
	return nil
}

func (m *Model) endRename() {
	if !m.renaming {
		return
	}
	m.renaming = false
	m.input.Reset()
	m.input.Placeholder = "Send a message..."
}

// stepSession selects the session delta places from the current one.
func (m *Model) stepSession(delta int) {
	sessions := m.snap.Sessions
	if len(sessions) == 0 {
		return
	}
	idx := 0
	for i, c := range sessions {
		if c.ID == m.snap.CurrentID {
			idx = i
			break
		}
	}
	next := idx + delta
	if next < 0 || next >= len(sessions) {
		return
	}
	m.endRename()
	if err := m.orch.SelectSession(sessions[next].ID); err != nil {
		m.setNotice(err.Error(), true)
	}
}

// stepModel selects the next model in the list, refreshing the list when
// it is empty.
func (m *Model) stepModel() tea.Cmd {
	if len(m.models) == 0 {
		m.setNotice("Loading models...", false)
		return m.refreshModelsCmd()
	}
	next := 0
	for i, mod := range m.models {
		if mod.ID == m.model {
			next = (i + 1) % len(m.models)
			break
		}
	}
	id := m.models[next].ID
	m.orch.SelectModel(id)
	m.setNotice(fmt.Sprintf("Model: %s", id), false)
	return nil
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeIsErr = isErr
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeIsErr = false
}

// =============================================================================
// RENDER SCHEDULING
// =============================================================================

// scheduleRefresh re-renders the conversation now if the limiter allows,
// otherwise once after the render interval.
func (m *Model) scheduleRefresh() tea.Cmd {
	m.dirty = true
	if m.limiter.Allow() {
		m.refresh()
		return nil
	}
	if m.flushPending {
		return nil
	}
	m.flushPending = true
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return flushMsg{} })
}

// refresh rebuilds the viewport content, following the tail when the view
// was already at the bottom.
func (m *Model) refresh() {
	m.dirty = false
	if !m.ready {
		return
	}
	follow := m.viewport.AtBottom() || m.state.Busy()
	m.viewport.SetContent(m.conversation())
	if follow {
		m.viewport.GotoBottom()
	}
}

// layout sizes the components for the window.
func (m *Model) layout() {
	m.sidebarWidth = 0
	if m.width >= minWidthForSidebar {
		m.sidebarWidth = m.wantSidebar
	}

	mainWidth := m.width - m.sidebarOuterWidth()
	if mainWidth < 10 {
		mainWidth = 10
	}

	m.input.SetWidth(mainWidth - 2)
	m.help.Width = m.width

	helpHeight := 1
	if m.help.ShowAll {
		helpHeight = 3
	}
	vpHeight := m.height - (inputHeight + 2) - 1 - helpHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = mainWidth - 1
	m.viewport.Height = vpHeight
	m.md.setWidth(mainWidth - 3)
}

// sidebarOuterWidth is the sidebar width including its border.
func (m *Model) sidebarOuterWidth() int {
	if m.sidebarWidth == 0 {
		return 0
	}
	return m.sidebarWidth + 2
}

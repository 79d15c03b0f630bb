// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat screen.
type KeyMap struct {
	Send        key.Binding
	Newline     key.Binding
	NewSession  key.Binding
	PrevSession key.Binding
	NextSession key.Binding
	Rename      key.Binding
	Delete      key.Binding
	NextModel   key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Cancel      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		PrevSession: key.NewBinding(
			key.WithKeys("alt+up", "ctrl+p"),
			key.WithHelp("ctrl+p", "previous chat"),
		),
		NextSession: key.NewBinding(
			key.WithKeys("alt+down", "ctrl+o"),
			key.WithHelp("ctrl+o", "next chat"),
		),
		Rename: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "delete chat"),
		),
		NextModel: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "next model"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop / cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g", "f1"),
			key.WithHelp("ctrl+g", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.NewSession, k.NextModel, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Newline, k.Cancel},
		{k.NewSession, k.PrevSession, k.NextSession, k.Rename, k.Delete},
		{k.NextModel, k.PageUp, k.PageDown, k.Help, k.Quit},
	}
}

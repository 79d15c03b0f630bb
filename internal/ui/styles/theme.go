// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for one output.
type Theme struct {
	Name     string
	IsDark   bool
	renderer *lipgloss.Renderer

	// Layout
	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SessionItem     lipgloss.Style
	SessionSelected lipgloss.Style
	SessionMeta     lipgloss.Style
	Conversation    lipgloss.Style
	InputBox        lipgloss.Style
	InputBoxFocused lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style

	// Status
	StatusBar lipgloss.Style
	Model     lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
	Key       lipgloss.Style
}

// NewTheme builds a theme for w. name is "dark", "light" or "auto"; auto
// asks the terminal for its background.
func NewTheme(name string, w io.Writer) *Theme {
	r := lipgloss.NewRenderer(w)
	switch strings.ToLower(name) {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	default:
		name = "auto"
	}

	t := &Theme{Name: name, IsDark: r.HasDarkBackground(), renderer: r}
	s := r.NewStyle

	t.Sidebar = s().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarTitle = s().Bold(true).Foreground(Cyan).MarginBottom(1)
	t.SessionItem = s().Foreground(TextSecondary).PaddingLeft(1)
	t.SessionSelected = s().Foreground(TextPrimary).Background(SelectionBg).Bold(true).PaddingLeft(1)
	t.SessionMeta = s().Foreground(TextMuted).PaddingLeft(1)
	t.Conversation = s().PaddingLeft(1)
	t.InputBox = s().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(Overlay)
	t.InputBoxFocused = s().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(Cyan)

	t.UserLabel = s().Bold(true).Foreground(Cyan)
	t.AssistantLabel = s().Bold(true).Foreground(Purple)
	t.SystemLabel = s().Bold(true).Foreground(Amber)
	t.MessageBody = s().Foreground(TextPrimary)

	t.StatusBar = s().Foreground(TextSecondary).Background(SurfaceDim).Padding(0, 1)
	t.Model = s().Foreground(Purple)
	t.Muted = s().Foreground(TextMuted)
	t.Success = s().Foreground(Emerald)
	t.Warning = s().Foreground(Amber)
	t.Error = s().Foreground(Rose).Bold(true)
	t.Help = s().Foreground(TextMuted)
	t.Key = s().Foreground(Cyan).Bold(true)
	return t
}

// Renderer returns the renderer the styles are bound to.
func (t *Theme) Renderer() *lipgloss.Renderer {
	return t.renderer
}

// ColorProfile returns the output's color profile.
func (t *Theme) ColorProfile() termenv.Profile {
	return t.renderer.ColorProfile()
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile() == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// RoleLabel renders the label for a message role.
func (t *Theme) RoleLabel(role string) string {
	switch role {
	case "user":
		return t.UserLabel.Render("You")
	case "assistant":
		return t.AssistantLabel.Render("Assistant")
	case "":
		return t.SystemLabel.Render("Unknown")
	default:
		return t.SystemLabel.Render(strings.ToUpper(role[:1]) + role[1:])
	}
}

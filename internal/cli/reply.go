// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/jeranaias/llmchat/internal/chat"
	"github.com/jeranaias/llmchat/internal/ui/styles"
)

// =============================================================================
// THEME AND MARKDOWN
// =============================================================================

// themeFor builds a theme for w, honoring NO_COLOR and FORCE_COLOR.
func themeFor(name string, w io.Writer) *styles.Theme {
	t := styles.NewTheme(name, w)
	t.Renderer().SetColorProfile(colorProfile(w))
	return t
}

// newMarkdownRenderer returns a glamour-backed renderer for w, or nil when
// glamour cannot be initialized.
func newMarkdownRenderer(theme *styles.Theme, w io.Writer) func(string) string {
	width := terminalWidth(w)
	if width > MaxMarkdownWidth {
		width = MaxMarkdownWidth
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return nil
	}
	return func(content string) string {
		out, err := tr.Render(content)
		if err != nil {
			return content
		}
		return out
	}
}

// =============================================================================
// REPLY WRITER
// =============================================================================

// replyWriter prints one assistant reply from orchestrator events. Without
// a renderer, deltas are written as they arrive; with one, the reply is
// buffered and rendered once complete.
type replyWriter struct {
	out     io.Writer
	status  io.Writer
	render  func(string) string
	session string

	printed int
	final   string
	failed  bool
	waiting bool
}

// newReplyWriter prints the reply for session id to out. status, if it is
// a terminal, shows a waiting indicator while a rendered reply buffers.
func newReplyWriter(out, status io.Writer, render func(string) string, id string) *replyWriter {
	r := &replyWriter{out: out, render: render, session: id}
	if render != nil && isTerminal(status) {
		r.status = status
	}
	return r
}

func (r *replyWriter) handle(e chat.Event) {
	if r.session != "" && e.SessionID != "" && e.SessionID != r.session {
		return
	}
	switch e.Kind {
	case chat.EventStateChanged:
		if e.State == chat.StateSending && r.status != nil {
			io.WriteString(r.status, "Thinking...")
			r.waiting = true
		}
		if r.session == "" {
			r.session = e.SessionID
		}
	case chat.EventDelta, chat.EventCompleted:
		r.final = e.Content
		r.stream()
	case chat.EventFailed:
		r.failed = true
		r.final = e.Content
	}
}

// stream writes the unprinted suffix of the reply in raw mode.
func (r *replyWriter) stream() {
	if r.render != nil || len(r.final) <= r.printed {
		return
	}
	io.WriteString(r.out, r.final[r.printed:])
	r.printed = len(r.final)
}

// finish prints whatever remains: the rendered reply, the failure message
// or a closing newline.
func (r *replyWriter) finish() {
	if r.waiting {
		termenv.NewOutput(r.status).ClearLine()
		io.WriteString(r.status, "\r")
		r.waiting = false
	}

	switch {
	case r.failed:
		if r.printed > 0 {
			io.WriteString(r.out, "\n")
		}
		if r.final != "" {
			io.WriteString(r.out, r.final+"\n")
		}
	case r.render != nil:
		io.WriteString(r.out, r.render(r.final))
	case r.printed > 0 && !strings.HasSuffix(r.final, "\n"):
		io.WriteString(r.out, "\n")
	}
}

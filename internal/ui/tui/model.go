// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jeranaias/llmchat/internal/api"
	"github.com/jeranaias/llmchat/internal/chat"
	"github.com/jeranaias/llmchat/internal/session"
	"github.com/jeranaias/llmchat/internal/ui/styles"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultSidebarWidth is the session list width in columns.
	DefaultSidebarWidth = 28

	// DefaultRenderFPS caps conversation re-renders while streaming.
	DefaultRenderFPS = 20

	// minWidthForSidebar hides the session list on narrow terminals.
	minWidthForSidebar = 70

	inputHeight = 3
)

// =============================================================================
// CONFIG
// =============================================================================

// Config controls the chat screen.
type Config struct {
	Theme        *styles.Theme
	Keys         *KeyMap
	SidebarWidth int
	RenderFPS    int
	Markdown     bool

	// Input and Output override the program's terminal (tests).
	Input  io.Reader
	Output io.Writer
}

// =============================================================================
// MESSAGES
// =============================================================================

// snapshotMsg carries a store snapshot.
type snapshotMsg struct{ snap session.Snapshot }

// eventMsg carries an orchestrator event.
type eventMsg struct{ event chat.Event }

// sendDoneMsg reports the end of a Send call.
type sendDoneMsg struct{ err error }

// flushMsg asks for a deferred conversation re-render.
type flushMsg struct{}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx   context.Context
	orch  *chat.Orchestrator
	store *session.Store
	theme *styles.Theme
	keys  KeyMap

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model

	md       *markdown
	limiter  *rate.Limiter
	interval time.Duration
	cancel   *cancelManager
	mail     *mailbox
	unsubs   []func()

	snap        session.Snapshot
	state       chat.State
	streamingID string
	model       string
	models      []api.Model

	notice      string
	noticeIsErr bool
	renaming    bool

	width        int
	height       int
	sidebarWidth int
	wantSidebar  int
	ready        bool
	dirty        bool
	flushPending bool
}

// New builds the chat screen for orch and subscribes it to the store and
// orchestrator. Call Close when done.
func New(ctx context.Context, orch *chat.Orchestrator, cfg Config) *Model {
	theme := cfg.Theme
	if theme == nil {
		theme = styles.NewTheme("auto", io.Discard)
	}
	keys := DefaultKeyMap()
	if cfg.Keys != nil {
		keys = *cfg.Keys
	}
	if cfg.SidebarWidth <= 0 {
		cfg.SidebarWidth = DefaultSidebarWidth
	}
	if cfg.RenderFPS <= 0 {
		cfg.RenderFPS = DefaultRenderFPS
	}

	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Model

	h := help.New()
	h.Styles.ShortKey = theme.Key
	h.Styles.FullKey = theme.Key
	h.Styles.ShortDesc = theme.Help
	h.Styles.FullDesc = theme.Help

	m := &Model{
		ctx:         ctx,
		orch:        orch,
		store:       orch.Store(),
		theme:       theme,
		keys:        keys,
		viewport:    viewport.New(0, 0),
		input:       ta,
		spinner:     sp,
		help:        h,
		md:          newMarkdown(theme.GlamourStyle(), cfg.Markdown, theme.MessageBody),
		limiter:     rate.NewLimiter(rate.Limit(cfg.RenderFPS), 1),
		interval:    time.Second / time.Duration(cfg.RenderFPS),
		cancel:      newCancelManager(),
		mail:        newMailbox(),
		snap:        orch.Store().Snapshot(),
		state:       orch.State(),
		model:       orch.Model(),
		models:      orch.Models(),
		wantSidebar: cfg.SidebarWidth,
	}

	m.unsubs = append(m.unsubs,
		m.store.Subscribe(func(s session.Snapshot) { m.mail.put(snapshotMsg{snap: s}) }),
		orch.Subscribe(func(e chat.Event) { m.mail.put(eventMsg{event: e}) }),
	)
	return m
}

// Close unsubscribes the model and stops any in-flight request.
func (m *Model) Close() {
	for _, u := range m.unsubs {
		u()
	}
	m.unsubs = nil
	m.cancel.cancel()
	m.mail.close()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.mail.listen(),
		m.refreshModelsCmd(),
	)
}

// refreshModelsCmd fetches the model list; the result arrives as an event.
func (m *Model) refreshModelsCmd() tea.Cmd {
	ctx, orch := m.ctx, m.orch
	return func() tea.Msg {
		_, _ = orch.RefreshModels(ctx)
		return nil
	}
}

// sendCmd runs one Send call under a cancellable context.
func (m *Model) sendCmd(text string) tea.Cmd {
	ctx := m.cancel.start(m.ctx)
	orch := m.orch
	return func() tea.Msg {
		return sendDoneMsg{err: orch.Send(ctx, text)}
	}
}

// =============================================================================
// RUN
// =============================================================================

// Run shows the chat screen until the user quits or ctx is done.
func Run(ctx context.Context, orch *chat.Orchestrator, cfg Config) error {
	m := New(ctx, orch, cfg)
	defer m.Close()

	opts := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}

	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

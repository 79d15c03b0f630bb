// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/llmchat/internal/api"
	"github.com/jeranaias/llmchat/internal/export"
	"github.com/jeranaias/llmchat/internal/session"
	"github.com/jeranaias/llmchat/internal/ui/styles"
	"github.com/jeranaias/llmchat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor whose history lives in historyFile.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

const replHelp = `Commands:
  /new               Start a new session
  /list              List sessions
  /select N          Switch to session N (number or id)
  /rename TITLE      Rename the current session
  /delete [N]        Delete session N (default: current)
  /model [ID]        Show or set the model; without ID, pick from a list
  /models            List available models
  /search QUERY      Search titles and messages
  /export [FORMAT]   Export the current session (md, json, yaml, html)
  /stats             Show request statistics
  /help              Show this help
  /quit              Exit

Ctrl+C stops a streaming reply. Ctrl+D exits.`

func newREPLCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "repl",
		Aliases: []string{"chat"},
		Short:   "Chat line by line",
		Long:    "Chat in line mode with input history.\n\n" + replHelp,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, g)
		},
	}
}

func runREPL(cmd *cobra.Command, g *globalFlags) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, g, false)
	if err != nil {
		return err
	}
	defer a.Close()
	a.applyModelFlag(g)

	out := cmd.OutOrStdout()
	r := newREPL(ctx, a, out, cmd.ErrOrStderr())
	go func() { _, _ = a.orch.RefreshModels(ctx) }()

	dataDir, err := a.cfg.DataDir()
	if err != nil {
		return err
	}
	line := NewChatCLI(filepath.Join(dataDir, "repl_history"))
	defer line.Close()

	r.banner()
	for {
		input, err := line.ReadInput(r.prompt())
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(out, r.theme.Muted.Render("(use /quit or Ctrl+D to exit)"))
			continue
		}
		if err != nil {
			// io.EOF on Ctrl+D.
			fmt.Fprintln(out)
			return nil
		}
		if r.handleLine(input) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// =============================================================================
// REPL
// =============================================================================

// repl executes REPL input against the app. It does not read the terminal
// itself, so it can be driven by tests.
type repl struct {
	ctx    context.Context
	a      *app
	out    io.Writer
	errOut io.Writer
	theme  *styles.Theme
	render func(string) string

	// pickModel chooses a model interactively; nil disables the picker.
	pickModel func(models []api.Model, current string) (string, error)
}

func newREPL(ctx context.Context, a *app, out, errOut io.Writer) *repl {
	r := &repl{
		ctx:    ctx,
		a:      a,
		out:    out,
		errOut: errOut,
		theme:  themeFor(a.cfg.UI.Theme, out),
	}
	if a.cfg.UI.Markdown && isTerminal(out) {
		r.render = newMarkdownRenderer(r.theme, out)
	}
	if IsTTY() {
		r.pickModel = pickModelInteractive
	}
	return r
}

func (r *repl) banner() {
	fmt.Fprintln(r.out, r.theme.AssistantLabel.Render("llmchat")+" "+r.theme.Muted.Render(Version))
	fmt.Fprintln(r.out, r.theme.Muted.Render("Connected to "+r.a.client.BaseURL()))
	fmt.Fprintln(r.out, r.theme.Muted.Render("Type a message, or /help for commands."))
	if cur, ok := r.a.store.Current(); ok {
		fmt.Fprintf(r.out, "Continuing %s\n", r.theme.Key.Render(cur.Title))
	}
	fmt.Fprintln(r.out)
}

func (r *repl) prompt() string {
	model := r.a.orch.Model()
	if model == "" {
		return "> "
	}
	return api.DisplayName(model) + " > "
}

// handleLine runs one line of input and reports whether to exit.
func (r *repl) handleLine(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.HasPrefix(input, "/") {
		quit, err := r.command(input)
		if err != nil {
			fmt.Fprintln(r.out, r.theme.Error.Render("Error: "+err.Error()))
		}
		return quit
	}
	if err := r.send(input); err != nil {
		fmt.Fprintln(r.out, r.theme.Error.Render("Error: "+err.Error()))
	}
	return false
}

// send streams one reply. Ctrl+C cancels the request, not the REPL.
func (r *repl) send(text string) error {
	ctx, stop := signal.NotifyContext(r.ctx, os.Interrupt)
	defer stop()

	w := newReplyWriter(r.out, r.errOut, r.render, r.a.store.CurrentID())
	unsubscribe := r.a.orch.Subscribe(w.handle)
	err := r.a.orch.Send(ctx, text)
	unsubscribe()
	w.finish()

	if errors.Is(err, context.Canceled) && r.ctx.Err() == nil {
		fmt.Fprintln(r.out, r.theme.Warning.Render("Stopped."))
		return nil
	}
	return err
}

// command runs a slash command.
func (r *repl) command(input string) (quit bool, err error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h", "/?":
		fmt.Fprintln(r.out, replHelp)

	case "/new", "/n":
		c := r.a.orch.NewSession()
		fmt.Fprintf(r.out, "Started %s\n", r.theme.Key.Render(c.Title))

	case "/list", "/ls":
		r.listSessions()

	case "/select", "/s":
		if arg == "" {
			return false, errors.New("usage: /select N")
		}
		c, err := resolveSession(r.a.store.Sessions(), arg)
		if err != nil {
			return false, err
		}
		if err := r.a.orch.SelectSession(c.ID); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Switched to %s (%d messages)\n", r.theme.Key.Render(c.Title), len(c.Messages))

	case "/rename":
		id := r.a.store.CurrentID()
		if id == "" {
			return false, errors.New("no current session")
		}
		if err := r.a.orch.RenameSession(id, arg); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Renamed to %s\n", r.theme.Key.Render(arg))

	case "/delete", "/del":
		id := r.a.store.CurrentID()
		if arg != "" {
			c, err := resolveSession(r.a.store.Sessions(), arg)
			if err != nil {
				return false, err
			}
			id = c.ID
		}
		if id == "" {
			return false, errors.New("no current session")
		}
		if err := r.a.orch.DeleteSession(id); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Deleted.")

	case "/model", "/m":
		return false, r.model(arg)

	case "/models":
		return false, r.listModels()

	case "/search":
		if arg == "" {
			return false, errors.New("usage: /search QUERY")
		}
		printMatches(r.out, r.theme, r.a.store.Search(arg))

	case "/export":
		return false, r.export(arg)

	case "/stats":
		r.stats()

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func (r *repl) listSessions() {
	sessions := r.a.store.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, r.theme.Muted.Render("No sessions yet."))
		return
	}
	writeSessionTable(r.out, sessions, r.a.store.CurrentID())
}

func (r *repl) model(arg string) error {
	if arg != "" {
		r.a.orch.SelectModel(arg)
		fmt.Fprintf(r.out, "Model set to %s\n", r.theme.Model.Render(arg))
		return nil
	}

	models := r.a.orch.Models()
	if r.pickModel == nil || len(models) == 0 {
		current := r.a.orch.Model()
		if current == "" {
			current = "(none)"
		}
		fmt.Fprintf(r.out, "Model: %s\n", r.theme.Model.Render(current))
		return nil
	}

	picked, err := r.pickModel(models, r.a.orch.Model())
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	if err != nil {
		return err
	}
	r.a.orch.SelectModel(picked)
	fmt.Fprintf(r.out, "Model set to %s\n", r.theme.Model.Render(picked))
	return nil
}

func (r *repl) listModels() error {
	models, err := r.a.orch.RefreshModels(r.ctx)
	if err != nil {
		return err
	}
	writeModelTable(r.out, models, r.a.orch.Model(), r.a.cfg.API.PreferredModel)
	return nil
}

func (r *repl) export(arg string) error {
	c, ok := r.a.store.Current()
	if !ok {
		return errors.New("no current session")
	}
	if arg == "" {
		arg = string(export.FormatMarkdown)
	}
	format, err := export.ParseFormat(arg)
	if err != nil {
		return err
	}
	opts := export.DefaultOptions()
	opts.Theme = r.theme.Name
	exporter, err := export.New(format, opts)
	if err != nil {
		return err
	}
	path, err := export.ToFile(c, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Exported to %s\n", path)
	return nil
}

func (r *repl) stats() {
	s := r.a.metrics.Summary()
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Sessions\t%d\n", r.a.store.Len())
	fmt.Fprintf(tw, "Replies completed\t%d\n", s.Completed)
	fmt.Fprintf(tw, "Replies failed\t%d\n", s.Failed)
	fmt.Fprintf(tw, "Deltas received\t%d\n", s.Deltas)
	fmt.Fprintf(tw, "Text received\t%s\n", formatBytes(s.Bytes))
	tw.Flush()
}

// =============================================================================
// SHARED OUTPUT
// =============================================================================

// pickModelInteractive shows a huh select of the models.
func pickModelInteractive(models []api.Model, current string) (string, error) {
	options := make([]huh.Option[string], 0, len(models))
	for _, m := range models {
		options = append(options, huh.NewOption(m.DisplayName(), m.ID).Selected(m.ID == current))
	}
	selected := current
	err := huh.NewSelect[string]().
		Title("Select a model").
		Options(options...).
		Value(&selected).
		Run()
	return selected, err
}

func writeModelTable(w io.Writer, models []api.Model, selected, preferred string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tOWNER")
	for _, m := range models {
		marker := ""
		switch m.ID {
		case selected:
			marker = "*"
		case preferred:
			marker = "+"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, m.ID, m.DisplayName(), m.OwnedBy)
	}
	tw.Flush()
}

func writeSessionTable(w io.Writer, sessions []session.ChatSession, currentID string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\t#\tID\tTITLE\tMESSAGES\tMODEL\tAGE")
	for i, c := range sessions {
		marker := ""
		if c.ID == currentID {
			marker = "*"
		}
		model := c.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			marker,
			strconv.Itoa(i+1),
			shortID(c.ID),
			util.TruncateWidth(util.SingleLine(c.Title), 40),
			len(c.Messages),
			model,
			formatDuration(time.Since(c.Created())),
		)
	}
	tw.Flush()
}

func printMatches(w io.Writer, theme *styles.Theme, matches []session.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, theme.Muted.Render("No matches."))
		return
	}
	for _, m := range matches {
		where := "title"
		if m.MessageIndex >= 0 {
			where = fmt.Sprintf("message %d", m.MessageIndex+1)
		}
		fmt.Fprintf(w, "%s  %s  %s\n", shortID(m.SessionID), theme.Key.Render(m.Title), theme.Muted.Render(where))
		if m.Snippet != "" {
			fmt.Fprintf(w, "    %s\n", m.Snippet)
		}
	}
}

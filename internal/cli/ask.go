// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

// askOptions holds the ask command's flags.
type askOptions struct {
	newSession bool
	sessionRef string
	raw        bool
}

func newAskCmd(g *globalFlags) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask TEXT...",
		Short: "Send one message and print the reply",
		Long: `Send one message into the current session (or a new one) and stream the
reply to stdout. When stdout is a terminal and markdown is enabled the reply
is rendered once it completes; otherwise it is printed as it arrives.

Ctrl+C stops the reply. The session records the failure like any other.`,
		Example: `  llmchat ask "What is server-sent events?"
  llmchat ask --new "Start a fresh topic"
  llmchat ask --session 2 "Follow up on that"
  echo "$(llmchat ask --raw 'one word for fast')" | wc -w`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, g, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVarP(&opts.newSession, "new", "n", false, "start a new session")
	cmd.Flags().StringVarP(&opts.sessionRef, "session", "s", "", "session number or id to continue")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the reply as it arrives without markdown rendering")
	return cmd
}

func runAsk(cmd *cobra.Command, g *globalFlags, opts *askOptions, text string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx, g, false)
	if err != nil {
		return err
	}
	defer a.Close()

	switch {
	case opts.sessionRef != "":
		c, err := resolveSession(a.store.Sessions(), opts.sessionRef)
		if err != nil {
			return err
		}
		if err := a.orch.SelectSession(c.ID); err != nil {
			return err
		}
	case opts.newSession:
		a.orch.NewSession()
	}
	a.applyModelFlag(g)

	out := cmd.OutOrStdout()
	var render func(string) string
	if !opts.raw && a.cfg.UI.Markdown && isTerminal(out) {
		render = newMarkdownRenderer(themeFor(a.cfg.UI.Theme, out), out)
	}

	w := newReplyWriter(out, cmd.ErrOrStderr(), render, a.store.CurrentID())
	unsubscribe := a.orch.Subscribe(w.handle)
	err = a.orch.Send(ctx, text)
	unsubscribe()
	w.finish()
	return err
}

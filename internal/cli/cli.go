// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath  string
	baseURL     string
	model       string
	store       string
	dataDir     string
	metricsAddr string
	verbose     bool
}

const longHelp = `llmchat is a terminal client for OpenAI-compatible chat completion services.

Replies stream in as they are generated. Conversations are kept as sessions
and persisted between runs.

Quick Start:
  llmchat                          Open the full-screen chat
  llmchat ask "explain SSE"        Ask one question from the shell
  llmchat repl                     Chat line by line
  llmchat sessions list            Show saved sessions
  llmchat sessions export 1 -f md  Export a session as Markdown`

// NewRootCmd builds the llmchat command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "llmchat",
		Short:         "Chat with an OpenAI-compatible model from the terminal",
		Long:          longHelp,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, g)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default ~/.llmchat/config.toml)")
	pf.StringVar(&g.baseURL, "base-url", "", "completion service root URL")
	pf.StringVar(&g.model, "model", "", "model id for new requests")
	pf.StringVar(&g.store, "store", "", "storage backend: file, sqlite, badger, postgres, memory")
	pf.StringVar(&g.dataDir, "data-dir", "", "directory for file-based stores")
	pf.StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log to stderr at debug level")

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(
		newTUICmd(g),
		newREPLCmd(g),
		newAskCmd(g),
		newModelsCmd(g),
		newSessionsCmd(g),
		newConfigCmd(g),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		DisplayError(os.Stderr, err)
		os.Exit(GetExitCode(err))
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/llmchat/internal/telemetry"
	"github.com/jeranaias/llmchat/internal/ui/tui"
)

func newTUICmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat (default)",
		Long: `Open the full-screen chat: sessions on the left, the conversation on the
right, input at the bottom. Press ctrl+g inside for key bindings.

With --metrics-addr (or metrics.addr in the config) Prometheus metrics are
served while the chat is open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, g)
		},
	}
}

// runTUI runs the chat screen and, when configured, the metrics server.
// Quitting the screen stops the server.
func runTUI(cmd *cobra.Command, g *globalFlags) error {
	if err := RequiresTTY("open the full-screen chat"); err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), g, true)
	if err != nil {
		return err
	}
	defer a.Close()
	a.applyModelFlag(g)

	group, groupCtx := errgroup.WithContext(cmd.Context())
	ctx, cancel := context.WithCancel(groupCtx)
	defer cancel()

	group.Go(func() error {
		defer cancel()
		return tui.Run(ctx, a.orch, tui.Config{
			Theme:        themeFor(a.cfg.UI.Theme, os.Stdout),
			SidebarWidth: a.cfg.UI.SidebarWidth,
			RenderFPS:    a.cfg.UI.RenderFPS,
			Markdown:     a.cfg.UI.Markdown,
		})
	})

	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := telemetry.NewServer(addr, a.metrics)
		group.Go(func() error {
			return srv.Run(ctx)
		})
	}

	return group.Wait()
}

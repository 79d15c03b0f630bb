// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jeranaias/llmchat/internal/export"
)

func newSessionsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage saved sessions",
		Long: `Manage saved sessions.

Sessions are referenced by their number in "sessions list" (newest is 1),
their full id, or a unique id prefix.`,
	}
	cmd.AddCommand(
		newSessionsListCmd(g),
		newSessionsShowCmd(g),
		newSessionsRenameCmd(g),
		newSessionsDeleteCmd(g),
		newSessionsSearchCmd(g),
		newSessionsExportCmd(g),
	)
	return cmd
}

// sessionSummary is the JSON shape of one listed session.
type sessionSummary struct {
	Number    int    `json:"number"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Model     string `json:"model"`
	Messages  int    `json:"messages"`
	CreatedAt int64  `json:"createdAt"`
	Current   bool   `json:"current"`
}

func newSessionsListCmd(g *globalFlags) *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonMode, "sessions list", func() (interface{}, error) {
				sessions := a.store.Sessions()
				current := a.store.CurrentID()
				if !jsonMode {
					if len(sessions) == 0 {
						fmt.Fprintln(out, "No sessions yet.")
					} else {
						writeSessionTable(out, sessions, current)
					}
				}
				rows := make([]sessionSummary, 0, len(sessions))
				for i, c := range sessions {
					rows = append(rows, sessionSummary{
						Number:    i + 1,
						ID:        c.ID,
						Title:     c.Title,
						Model:     c.Model,
						Messages:  len(c.Messages),
						CreatedAt: c.CreatedAt,
						Current:   c.ID == current,
					})
				}
				return rows, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "print JSON")
	return cmd
}

func newSessionsShowCmd(g *globalFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show REF",
		Short: "Print a session's conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := resolveSession(a.store.Sessions(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(c.Messages) == 0 {
				fmt.Fprintf(out, "%s has no messages.\n", c.Title)
				return nil
			}

			data, err := export.NewMarkdownExporter(&export.Options{IncludeMetadata: true}).Export(c)
			if err != nil {
				return err
			}
			if !raw && a.cfg.UI.Markdown && isTerminal(out) {
				if render := newMarkdownRenderer(themeFor(a.cfg.UI.Theme, out), out); render != nil {
					fmt.Fprint(out, render(string(data)))
					return nil
				}
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown source without rendering")
	return cmd
}

func newSessionsRenameCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename REF TITLE...",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := resolveSession(a.store.Sessions(), args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if err := a.orch.RenameSession(c.ID, title); err != nil {
				return NewCommandError("sessions", "rename", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", shortID(c.ID), strings.TrimSpace(title))
			return nil
		},
	}
}

func newSessionsDeleteCmd(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete REF...",
		Aliases: []string{"rm"},
		Short:   "Delete sessions",
		Long: `Delete one or more sessions. Asks for confirmation unless --yes is given;
without a terminal, --yes is required.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			// Resolve everything first so list positions refer to one snapshot.
			sessions := a.store.Sessions()
			var ids, titles []string
			for _, ref := range args {
				c, err := resolveSession(sessions, ref)
				if err != nil {
					return err
				}
				ids = append(ids, c.ID)
				titles = append(titles, c.Title)
			}

			if !yes {
				if err := RequiresTTY("confirm deletion (pass --yes)"); err != nil {
					return err
				}
				confirmed := false
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Delete %s?", strings.Join(quoteAll(titles), ", "))).
					Affirmative("Delete").
					Negative("Keep").
					Value(&confirmed).
					Run()
				if err != nil && !errors.Is(err, huh.ErrUserAborted) {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted.")
					return nil
				}
			}

			out := cmd.OutOrStdout()
			for i, id := range ids {
				if err := a.orch.DeleteSession(id); err != nil {
					return NewCommandError("sessions", "delete", err)
				}
				fmt.Fprintf(out, "Deleted %s (%s)\n", shortID(id), titles[i])
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

func newSessionsSearchCmd(g *globalFlags) *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search session titles and messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonMode, "sessions search", func() (interface{}, error) {
				matches := a.store.Search(strings.Join(args, " "))
				if !jsonMode {
					printMatches(out, themeFor(a.cfg.UI.Theme, out), matches)
				}
				return matches, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "print JSON")
	return cmd
}

func newSessionsExportCmd(g *globalFlags) *cobra.Command {
	var (
		format   string
		output   string
		toStdout bool
		open     bool
		noMeta   bool
	)
	cmd := &cobra.Command{
		Use:   "export REF",
		Short: "Export a session to a file",
		Long: `Export a session as Markdown, JSON, YAML or HTML.

The JSON format matches the stored session shape.`,
		Example: `  llmchat sessions export 1
  llmchat sessions export 1 -f html --open
  llmchat sessions export 3f2a -f json --stdout > session.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := resolveSession(a.store.Sessions(), args[0])
			if err != nil {
				return err
			}

			opts := export.DefaultOptions()
			opts.OutputDir = output
			opts.OpenAfterExport = open
			opts.IncludeMetadata = !noMeta
			if a.cfg.UI.Theme == "light" {
				opts.Theme = "light"
			}
			exporter, err := export.New(f, opts)
			if err != nil {
				return err
			}

			if toStdout {
				data, err := exporter.Export(c)
				if err != nil {
					return NewCommandError("sessions", "export", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			path, err := export.ToFile(c, exporter, opts)
			if path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			}
			if err != nil {
				return NewCommandError("sessions", "export", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "md, json, yaml or html")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write to stdout instead of a file")
	cmd.Flags().BoolVar(&open, "open", false, "open the file after exporting")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "omit the metadata header")
	return cmd
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/llmchat/internal/config"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
		Long: `Show or change the configuration file.

Keys use dot notation, e.g. api.base_url or ui.render_fps; "config keys"
lists them all. Environment variables (LLMCHAT_BASE_URL, LLMCHAT_MODEL,
LLMCHAT_API_KEY, LLMCHAT_STORE, LLMCHAT_DATA_DIR, ...) override the file.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (API key redacted)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(g)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print one value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(g)
				if err != nil {
					return err
				}
				v, err := cfg.Get(args[0])
				if err != nil {
					return err
				}
				if strings.EqualFold(args[0], "api.api_key") && v != "" {
					v = "[REDACTED]"
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change one value in the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(g)
				if err != nil {
					return err
				}
				// Start from the file alone so flags and environment
				// overrides are not written back.
				cfg := config.Default()
				if _, statErr := os.Stat(path); statErr == nil {
					if err := loadFileOnly(cfg, path); err != nil {
						return err
					}
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				if strings.HasSuffix(path, ".json") {
					err = config.SaveJSON(cfg, path)
				} else {
					err = config.SaveTOML(cfg, path)
				}
				if err != nil {
					return NewCommandError("config", "set", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(g)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every config key",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, k := range config.GetAllKeys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			},
		},
	)
	return cmd
}

// configFilePath is --config or the default TOML location.
func configFilePath(g *globalFlags) (string, error) {
	if g.configPath != "" {
		return g.configPath, nil
	}
	return config.ConfigPathTOML()
}

func loadFileOnly(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.LoadJSON(cfg, path)
	}
	return config.LoadTOML(cfg, path)
}

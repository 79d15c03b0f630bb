// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"sort"

	"github.com/spf13/cobra"
)

func newModelsCmd(g *globalFlags) *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the service offers",
		Long: `List the models the service offers, sorted by id.

  *  the model new requests use
  +  the preferred model from the config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonMode, "models", func() (interface{}, error) {
				// The client is used directly so listing never changes a
				// session's model.
				models, err := a.client.ListModels(cmd.Context())
				a.metrics.ObserveModelList(err)
				if err != nil {
					return nil, err
				}
				sort.SliceStable(models, func(i, j int) bool { return models[i].ID < models[j].ID })
				if !jsonMode {
					selected := a.orch.Model()
					if g.model != "" {
						selected = g.model
					}
					writeModelTable(out, models, selected, a.cfg.API.PreferredModel)
				}
				return models, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "print JSON")
	return cmd
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"github.com/spf13/cobra"

	"github.com/bartekus/docagent/internal/pipeline"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the most recent commits as JSON",
		Long:  "Print the most recent commits as JSON. A failing history backend prints an empty list.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg, pipeline.Deps{Log: log})
			if err != nil {
				return mapError(err)
			}

			res, _ := p.History(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), res.Commits)
		},
	}
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"github.com/spf13/cobra"

	"github.com/bartekus/docagent/internal/pipeline"
	"github.com/bartekus/docagent/internal/scanner"
	"github.com/bartekus/docagent/internal/signatures"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Print the symbols found under --root as JSON",
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

			results, _, err := p.Scan(cmd.Context())
			if err != nil {
				return mapError(err)
			}
			symbols := scanner.Symbols(results)
			if symbols == nil {
				symbols = []signatures.Symbol{}
			}
			return writeJSON(cmd.OutOrStdout(), symbols)
		},
	}
}

// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Docagent - Docagent scans a source tree for code symbols, reads recent version-control history and emits documentation artifacts.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bartekus/docagent/cmd/docagent/internal/clierr"
	"github.com/bartekus/docagent/internal/config"
	"github.com/bartekus/docagent/internal/logging"
	"github.com/bartekus/docagent/internal/pipeline"
)

// NewRootCmd constructs the docagent root Cobra command. Without a subcommand
// it runs the whole pipeline.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("DOCAGENT_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:   "docagent",
		Short: "Generate documentation artifacts from source and git history",
		Long: `docagent scans the source tree for C#, Python and JavaScript symbols, reads
recent git history and writes TDD.xml, CHANGELOG.md and release_notes.json.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGenerate,
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.String("root", ".", "directory to scan and read history from")
	flags.String("out", "agent_test_output", "output directory, relative to --root")
	flags.Int("limit", 50, "maximum number of commits to read")
	flags.String("config", "", "config file (default .docagent.{yaml,toml,json} if present)")
	flags.BoolP("verbose", "v", false, "enable verbose output")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of docagent",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "docagent version %s\n", version)
		},
	})
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	sum, err := pipeline.Run(cmd.Context(), cfg, pipeline.Deps{Log: log})
	if err != nil {
		return mapError(err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Documentation generated successfully in %s\n", displayDir(cfg.OutDir))
	if len(sum.FailedFiles) > 0 {
		log.Debug("files skipped", "count", len(sum.FailedFiles))
	}
	return nil
}

// setup loads the configuration with flag overrides and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	log := logging.New(cmd.ErrOrStderr(), verbose)

	overrides := map[string]any{}
	for flag, key := range map[string]string{"root": "root", "out": "out_dir", "limit": "history.limit"} {
		if !flags.Changed(flag) {
			continue
		}
		if flag == "limit" {
			n, _ := flags.GetInt(flag)
			overrides[key] = n
			continue
		}
		s, _ := flags.GetString(flag)
		overrides[key] = s
	}

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path, overrides)
	if err != nil {
		return nil, nil, clierr.Config(err)
	}
	log.Debug("configuration loaded", "root", cfg.Root, "out", cfg.OutPath(), "backend", cfg.History.Backend)
	return cfg, log, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrConfig):
		return clierr.Config(err)
	case errors.Is(err, pipeline.ErrEmit):
		return clierr.Write(err)
	default:
		return clierr.Wrap(clierr.ExitGeneric, "docagent failed", err)
	}
}

func displayDir(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.ToSlash(dir) + "/"
	}
	return "./" + filepath.ToSlash(filepath.Clean(dir)) + "/"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

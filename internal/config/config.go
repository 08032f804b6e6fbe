// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config holds the single explicit configuration value handed to every
// docagent pipeline stage.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// BackendGit shells out to `git log`.
	BackendGit = "git"
	// BackendGoGit reads history in-process with go-git.
	BackendGoGit = "go-git"

	// EnvPrefix is prepended to every environment override (DOCAGENT_HISTORY_LIMIT, ...).
	EnvPrefix = "DOCAGENT"

	defaultOutDir  = "agent_test_output"
	defaultLimit   = 50
	defaultVersion = "1.0.0"
)

// Config is the complete docagent configuration.
type Config struct {
	Root    string        `json:"root" mapstructure:"root"`
	OutDir  string        `json:"out_dir" mapstructure:"out_dir"`
	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	History HistoryConfig `json:"history" mapstructure:"history"`
	Report  ReportConfig  `json:"report" mapstructure:"report"`
}

// ScanConfig controls file discovery and rule loading.
type ScanConfig struct {
	// Extensions restricts scanning to these extensions. Empty means every
	// extension known to the rule table.
	Extensions []string `json:"extensions" mapstructure:"extensions"`
	// Exclude lists extra directory names to prune, on top of ".git".
	Exclude     []string `json:"exclude" mapstructure:"exclude"`
	TrackedOnly bool     `json:"tracked_only" mapstructure:"tracked_only"`
	RulesFile   string   `json:"rules_file" mapstructure:"rules_file"`
}

// HistoryConfig controls the history reader.
type HistoryConfig struct {
	Backend string `json:"backend" mapstructure:"backend"`
	Limit   int    `json:"limit" mapstructure:"limit"`
	// Timeout bounds the history backend. Zero waits forever.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// ReportConfig controls artifact rendering.
type ReportConfig struct {
	EscapeXML bool   `json:"escape_xml" mapstructure:"escape_xml"`
	Version   string `json:"version" mapstructure:"version"`
}

// Default returns the configuration used when nothing is overridden:
// scan the working directory, read 50 commits with git, write to ./agent_test_output.
func Default() *Config {
	return &Config{
		Root:   ".",
		OutDir: defaultOutDir,
		History: HistoryConfig{
			Backend: BackendGit,
			Limit:   defaultLimit,
		},
		Report: ReportConfig{
			Version: defaultVersion,
		},
	}
}

// Load builds a Config from defaults, an optional config file, DOCAGENT_*
// environment variables (after loading .env if present) and overrides, in
// increasing order of precedence. Override keys use dotted paths ("history.limit").
//
// When path is empty, .docagent.{yaml,toml,json} is looked up in the working
// directory; its absence is not an error.
func Load(path string, overrides map[string]any) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(".docagent")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	for key, val := range overrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root", d.Root)
	v.SetDefault("out_dir", d.OutDir)
	v.SetDefault("scan.extensions", d.Scan.Extensions)
	v.SetDefault("scan.exclude", d.Scan.Exclude)
	v.SetDefault("scan.tracked_only", d.Scan.TrackedOnly)
	v.SetDefault("scan.rules_file", d.Scan.RulesFile)
	v.SetDefault("history.backend", d.History.Backend)
	v.SetDefault("history.limit", d.History.Limit)
	v.SetDefault("history.timeout", d.History.Timeout)
	v.SetDefault("report.escape_xml", d.Report.EscapeXML)
	v.SetDefault("report.version", d.Report.Version)
}

// Validate rejects configurations no stage can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("root must not be empty")
	}
	if strings.TrimSpace(c.OutDir) == "" {
		return errors.New("out_dir must not be empty")
	}
	switch c.History.Backend {
	case BackendGit, BackendGoGit:
	default:
		return fmt.Errorf("unknown history backend %q (must be %q or %q)", c.History.Backend, BackendGit, BackendGoGit)
	}
	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be positive, got %d", c.History.Limit)
	}
	if c.History.Timeout < 0 {
		return fmt.Errorf("history.timeout must not be negative, got %s", c.History.Timeout)
	}
	for _, ext := range c.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("scan.extensions entry %q must start with a dot", ext)
		}
	}
	return nil
}

// OutPath resolves OutDir against Root when it is relative.
func (c *Config) OutPath() string {
	if filepath.IsAbs(c.OutDir) {
		return c.OutDir
	}
	return filepath.Join(c.Root, c.OutDir)
}

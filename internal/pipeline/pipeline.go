// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Docagent - Docagent scans a source tree for code symbols, reads recent version-control history and emits documentation artifacts.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package pipeline runs the scan, history and emit stages in order against one
// configuration value.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bartekus/docagent/internal/config"
	"github.com/bartekus/docagent/internal/history"
	"github.com/bartekus/docagent/internal/report"
	"github.com/bartekus/docagent/internal/scanner"
	"github.com/bartekus/docagent/internal/signatures"
)

var (
	// ErrConfig marks failures caused by the configuration, such as a broken rules file.
	ErrConfig = errors.New("invalid configuration")
	// ErrEmit marks a failure to write the artifacts.
	ErrEmit = errors.New("writing documentation artifacts failed")
)

// Deps are the collaborators shared by every stage.
type Deps struct {
	Log *slog.Logger
	// Now stamps the artifacts; nil means time.Now.
	Now func() time.Time
}

// Pipeline manages the execution of the stages.
type Pipeline struct {
	cfg   *config.Config
	deps  Deps
	table *signatures.Table
}

// New prepares a pipeline, loading the extra rules file if one is configured.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	table := signatures.Builtin()
	if cfg.Scan.RulesFile != "" {
		extra, err := signatures.LoadRuleFile(cfg.Scan.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		table, err = table.With(extra)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		deps.Log.Debug("loaded rules file", "path", cfg.Scan.RulesFile, "languages", len(extra))
	}

	return &Pipeline{cfg: cfg, deps: deps, table: table}, nil
}

// Run is shorthand for New followed by Pipeline.Run.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Summary, error) {
	p, err := New(cfg, deps)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

// Run executes scan, history and emit in order. Degraded stages do not stop
// the run. The summary is returned even when a stage fails.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{OutDir: p.cfg.OutPath()}

	results, res, err := p.Scan(ctx)
	sum.Stages = append(sum.Stages, p.record(res))
	if err != nil {
		return sum, err
	}
	sum.Symbols = scanner.Symbols(results)
	for _, f := range scanner.Failed(results) {
		sum.FailedFiles = append(sum.FailedFiles, f.Path)
	}

	hist, res := p.History(ctx)
	sum.Stages = append(sum.Stages, p.record(res))
	sum.Commits = hist.Commits

	arts, res, err := p.Emit(sum.Symbols, sum.Commits)
	sum.Stages = append(sum.Stages, p.record(res))
	if err != nil {
		return sum, err
	}
	sum.Artifacts = arts
	return sum, nil
}

// Scan discovers files under the root and extracts their symbols.
func (p *Pipeline) Scan(ctx context.Context) ([]scanner.FileResult, StageResult, error) {
	s := scanner.New(p.cfg.Root, p.filterOptions(), p.deps.Log)

	files, err := s.Files(ctx, p.cfg.Scan.TrackedOnly)
	if err != nil {
		return nil, StageResult{Stage: StageScan, Status: StatusFail, Note: err.Error()}, err
	}

	results, err := s.Scan(ctx, p.table, files)
	if err != nil {
		return nil, StageResult{Stage: StageScan, Status: StatusFail, Note: err.Error()}, err
	}

	symbols := scanner.Symbols(results)
	p.deps.Log.Info("Total signatures found", "count", len(symbols))

	res := StageResult{Stage: StageScan, Status: StatusPass}
	if failed := scanner.Failed(results); len(failed) > 0 {
		res.Status = StatusDegraded
		res.Note = fmt.Sprintf("%d of %d files could not be parsed", len(failed), len(results))
	}
	return results, res, nil
}

// History reads recent commits. A failing backend degrades the stage and
// yields an empty list.
func (p *Pipeline) History(ctx context.Context) (history.Result, StageResult) {
	h := p.cfg.History
	src, err := history.NewSource(h.Backend, p.cfg.Root, h.Limit, p.deps.Log)
	if err != nil {
		return history.Result{Commits: []history.Commit{}, Err: err},
			StageResult{Stage: StageHistory, Status: StatusDegraded, Note: err.Error()}
	}

	hist := history.Read(ctx, src, h.Timeout, p.deps.Log)
	if hist.Err != nil {
		return hist, StageResult{Stage: StageHistory, Status: StatusDegraded, Note: hist.Err.Error()}
	}
	return hist, StageResult{Stage: StageHistory, Status: StatusPass}
}

// Emit writes the artifacts into the configured output directory.
func (p *Pipeline) Emit(symbols []signatures.Symbol, commits []history.Commit) (report.Artifacts, StageResult, error) {
	e := &report.Emitter{
		OutDir:    p.cfg.OutPath(),
		Version:   p.cfg.Report.Version,
		EscapeXML: p.cfg.Report.EscapeXML,
		Now:       p.deps.Now,
	}
	arts, err := e.Emit(symbols, commits)
	if err != nil {
		return report.Artifacts{}, StageResult{Stage: StageEmit, Status: StatusFail, Note: err.Error()},
			fmt.Errorf("%w: %w", ErrEmit, err)
	}
	return arts, StageResult{Stage: StageEmit, Status: StatusPass}, nil
}

func (p *Pipeline) record(res StageResult) StageResult {
	attrs := []any{"stage", res.Stage, "status", string(res.Status)}
	if res.Note != "" {
		attrs = append(attrs, "note", res.Note)
	}
	switch res.Status {
	case StatusPass:
		p.deps.Log.Debug("stage finished", attrs...)
	case StatusDegraded:
		p.deps.Log.Warn("stage degraded", attrs...)
	default:
		p.deps.Log.Error("stage failed", attrs...)
	}
	return res
}

// filterOptions prunes .git plus configured directories, and the output
// directory when it lies under the root. Extensions default to the rule table's.
func (p *Pipeline) filterOptions() scanner.FilterOptions {
	opts := scanner.FilterOptions{
		ExcludeDirs:       append(scanner.DefaultExcludeDirs(), p.cfg.Scan.Exclude...),
		IncludeExtensions: p.cfg.Scan.Extensions,
	}
	if len(opts.IncludeExtensions) == 0 {
		opts.IncludeExtensions = p.table.Extensions()
	}
	if rel, ok := within(p.cfg.Root, p.cfg.OutPath()); ok {
		opts.ExcludePaths = []string{rel}
	}
	return opts
}

// within returns target relative to root, slash-separated, when target is
// strictly below root.
func within(root, target string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
